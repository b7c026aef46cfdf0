package catalog

// CarModel is a catalog document describing one car model. The slug is the
// unique, URL-safe identifier; garage entries reference it by value with no
// database-level constraint.
type CarModel struct {
	Slug          string         `bson:"slug" json:"slug"`
	Name          string         `bson:"name" json:"name"`
	Category      string         `bson:"category" json:"category"`
	Icon          string         `bson:"icon" json:"icon"`
	Href          string         `bson:"href" json:"href"`
	Years         string         `bson:"years" json:"years"`
	Overview      Overview       `bson:"overview" json:"overview"`
	Trims         []Trim         `bson:"trims" json:"trims"`
	Modifications []Modification `bson:"modifications" json:"modifications"`
	History       []string       `bson:"history" json:"history"`
	Images        *Images        `bson:"images,omitempty" json:"images,omitempty"`
}

// Overview summarizes manufacturer-level facts about a model.
type Overview struct {
	Manufacturer string `bson:"manufacturer" json:"manufacturer"`
	BodyStyle    string `bson:"bodyStyle" json:"bodyStyle"`
	History      string `bson:"history" json:"history"`
}

// Trim is one factory trim level with its performance figures.
type Trim struct {
	Name        string `bson:"name" json:"name"`
	Engine      string `bson:"engine" json:"engine"`
	Horsepower  int    `bson:"horsepower" json:"horsepower"`
	Torque      int    `bson:"torque" json:"torque"`
	ZeroToSixty string `bson:"zeroToSixty" json:"zeroToSixty"`
	TopSpeed    string `bson:"topSpeed" json:"topSpeed"`
	Years       string `bson:"years" json:"years"`
}

// Modification is a common aftermarket modification for a model.
type Modification struct {
	Name      string `bson:"name" json:"name"`
	Type      string `bson:"type" json:"type"`
	HPGain    string `bson:"hpGain" json:"hpGain"`
	CostRange string `bson:"costRange" json:"costRange"`
	Install   string `bson:"install" json:"install"`
}

// Images holds optional imagery for a model, keyed per trim name.
type Images struct {
	Hero    string            `bson:"hero,omitempty" json:"hero,omitempty"`
	Gallery []string          `bson:"gallery,omitempty" json:"gallery,omitempty"`
	Trims   map[string]string `bson:"trims,omitempty" json:"trims,omitempty"`
}

// Summary is the lightweight catalog listing projection.
type Summary struct {
	Slug     string `bson:"slug" json:"slug"`
	Name     string `bson:"name" json:"name"`
	Category string `bson:"category" json:"category"`
	Icon     string `bson:"icon" json:"icon"`
	Href     string `bson:"href" json:"href"`
	Years    string `bson:"years" json:"years"`
	Image    string `bson:"image,omitempty" json:"image,omitempty"`
}

// Summarize projects a full document onto its catalog listing shape.
func (m CarModel) Summarize() Summary {
	summary := Summary{
		Slug:     m.Slug,
		Name:     m.Name,
		Category: m.Category,
		Icon:     m.Icon,
		Href:     m.Href,
		Years:    m.Years,
	}
	if m.Images != nil {
		summary.Image = m.Images.Hero
	}
	return summary
}
