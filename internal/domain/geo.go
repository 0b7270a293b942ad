package domain

// Region groups cities for digest aggregation and donor matching.
// A campaign's region is always derived through its city; it is never
// stored on the campaign row itself.
type Region struct {
	ID   string
	Name string
}

type City struct {
	ID       string
	Name     string
	RegionID string
}

type Organization struct {
	ID   string
	Name string
}
