package domain

// Lead is the person behind an analyzed profile
type Lead struct {
	LinkedInURL    string `json:"linkedin_url"`
	FullName       string `json:"full_name,omitempty"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	Headline       string `json:"headline,omitempty"`
	CurrentTitle   string `json:"current_title,omitempty"`
	CurrentCompany string `json:"current_company,omitempty"`
	Location       string `json:"location,omitempty"`
	// Languages is the preferred language detected from the profile
	Languages string `json:"languages,omitempty"`
}

// Experience is one position from the profile
type Experience struct {
	Title          string `json:"title,omitempty"`
	Company        string `json:"company,omitempty"`
	Location       string `json:"location,omitempty"`
	Duration       string `json:"duration,omitempty"`
	Description    string `json:"description,omitempty"`
	EmploymentType string `json:"employment_type,omitempty"`
	LocationType   string `json:"location_type,omitempty"`
	Skills         string `json:"skills,omitempty"`
	IsCurrent      bool   `json:"is_current,omitempty"`
}

// Education is one school entry from the profile
type Education struct {
	School       string `json:"school,omitempty"`
	Degree       string `json:"degree,omitempty"`
	DegreeName   string `json:"degree_name,omitempty"`
	FieldOfStudy string `json:"field_of_study,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Description  string `json:"description,omitempty"`
}

// Certification is one certification from the profile
type Certification struct {
	Name       string `json:"name,omitempty"`
	Issuer     string `json:"issuer,omitempty"`
	IssuedDate string `json:"issued_date,omitempty"`
}
