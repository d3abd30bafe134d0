package dto

// ClampSemestersResult reports how many students were corrected.
type ClampSemestersResult struct {
	Cap     int   `json:"cap"`
	Updated int64 `json:"updated"`
}
