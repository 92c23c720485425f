package analysis

// File is a resume document held in memory so it can be scanned and uploaded from the same bytes.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// Empty reports whether the file carries no content.
func (f File) Empty() bool {
	return len(f.Content) == 0
}

// UploadResult is returned by the upload call. ExtractedText is a truncated preview the service may include.
type UploadResult struct {
	CandidateSkills []string `json:"candidate_skills"`
	ExtractedText   string   `json:"extracted_text,omitempty"`
}

// AnalysisRequest is built from an UploadResult plus the user's job description.
type AnalysisRequest struct {
	CandidateSkills []string `json:"candidate_skills"`
	JobDescription  string   `json:"job_description" validate:"notblank"`
}

// AnalysisResult is the service's verdict. The matched/missing partition is rendered as-is.
type AnalysisResult struct {
	Score           float64  `json:"score"`
	CandidateSkills []string `json:"candidate_skills"`
	MatchedSkills   []string `json:"matched_skills"`
	MissingSkills   []string `json:"missing_skills"`
	Suggestions     string   `json:"suggestions"`
}

// Normalize replaces nil lists with empty ones so the result always encodes as arrays.
func (r *AnalysisResult) Normalize() {
	if r.CandidateSkills == nil {
		r.CandidateSkills = []string{}
	}
	if r.MatchedSkills == nil {
		r.MatchedSkills = []string{}
	}
	if r.MissingSkills == nil {
		r.MissingSkills = []string{}
	}
}
