package model

type ScoredCase struct {
	Case       *Case   `json:"case"`
	Similarity float64 `json:"similarity"`
}
