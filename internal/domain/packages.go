package domain

// StarPackage is a fixed purchase option: stars granted for gems spent.
type StarPackage struct {
	Name     string `json:"name"`
	Stars    int    `json:"stars"`
	GemsCost int    `json:"gemsCost"`
}

// starPackages is the fixed purchase catalog.
var starPackages = map[string]StarPackage{
	"small":     {Name: "small", Stars: 2, GemsCost: 1},
	"medium":    {Name: "medium", Stars: 5, GemsCost: 10},
	"large":     {Name: "large", Stars: 10, GemsCost: 15},
	"huge":      {Name: "huge", Stars: 15, GemsCost: 20},
	"luxury":    {Name: "luxury", Stars: 50, GemsCost: 30},
	"legendary": {Name: "legendary", Stars: 100, GemsCost: 69},
}

// LookupPackage resolves a package by name.
func LookupPackage(name string) (StarPackage, error) {
	pkg, ok := starPackages[name]
	if !ok {
		return StarPackage{}, ErrInvalidPackage
	}
	return pkg, nil
}
