package model

type JudgeStat struct {
	Judge      string         `json:"judge"`
	TotalCases int            `json:"total_cases"`
	Outcomes   map[string]int `json:"outcomes"`
}

type ActCount struct {
	Act   string `json:"act"`
	Count int    `json:"count"`
}

type CourtCount struct {
	Court string `json:"court"`
	Count int    `json:"count"`
}

type OutcomeCount struct {
	Outcome string `json:"outcome"`
	Count   int    `json:"count"`
}

type CorpusStatus struct {
	Status      string `json:"status"`
	TotalCases  int    `json:"total_cases"`
	TotalCourts int    `json:"total_courts"`
	TotalJudges int    `json:"total_judges"`
	TotalActs   int    `json:"total_acts"`
	CacheState  string `json:"cache_state"`
	Model       string `json:"model,omitempty"`
	Device      string `json:"device,omitempty"`
	Dimension   int    `json:"dimension,omitempty"`
}
