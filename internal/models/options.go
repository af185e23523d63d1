package models

// Option sets for the enumerated registration fields.
var (
	CourseOptions = []string{"B.A.", "B.Com", "B.Sc", "B.Tech", "BBA", "BCA", "M.A.", "M.Com", "M.Sc", "M.Tech", "MBA", "MCA"}

	StateOptions = []string{
		"Andhra Pradesh", "Karnataka", "Kerala", "Maharashtra", "Odisha",
		"Tamil Nadu", "Telangana", "West Bengal", "Other",
	}

	TownOptions = []string{
		"Bengaluru", "Chennai", "Guntur", "Hyderabad", "Kochi", "Kolkata",
		"Mumbai", "Pune", "Vijayawada", "Visakhapatnam", "Warangal", "Other",
	}

	GenderOptions      = []string{"Male", "Female", "Other"}
	NationalityOptions = []string{"Indian", "Other"}
	ReligionOptions    = []string{"Hindu", "Muslim", "Christian", "Sikh", "Buddhist", "Jain", "Other"}
	CasteOptions       = []string{"General", "OBC", "SC", "ST", "EWS"}
	SubcasteOptions    = []string{"BC-A", "BC-B", "BC-C", "BC-D", "BC-E", "Other"}
)

// OptionSets maps each enumerated field's JSON name to its permitted values.
func OptionSets() map[string][]string {
	return map[string][]string{
		"courses":     CourseOptions,
		"town":        TownOptions,
		"state":       StateOptions,
		"gender":      GenderOptions,
		"nationality": NationalityOptions,
		"religion":    ReligionOptions,
		"caste":       CasteOptions,
		"subcaste":    SubcasteOptions,
	}
}
