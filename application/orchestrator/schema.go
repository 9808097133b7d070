package orchestrator

// Schema document types for the graph backend's /schema endpoint.

type schemaDoc struct {
	PropertyKeys  []propertyKey `json:"propertyKeys"`
	VertexLabels  []label       `json:"vertexLabels"`
	EdgeLabels    []edgeLabel   `json:"edgeLabels"`
	VertexIndexes []index       `json:"vertexIndexes"`
	EdgeIndexes   []index       `json:"edgeIndexes"`
}

type propertyKey struct {
	Name        string `json:"name"`
	DataType    string `json:"dataType"`
	Cardinality string `json:"cardinality"`
}

type label struct {
	Name string `json:"name"`
}

type edgeLabel struct {
	Name         string `json:"name"`
	Multiplicity string `json:"multiplicity"`
}

type index struct {
	Name         string   `json:"name"`
	PropertyKeys []string `json:"propertyKeys"`
	Composite    bool     `json:"composite"`
	Unique       bool     `json:"unique"`
}

// graphSchema is the contract graph's property schema: single-cardinality
// string keys, the three vertex labels, MULTI edges, and composite
// non-unique indexes over the queryable properties.
func graphSchema() schemaDoc {
	stringKey := func(name string) propertyKey {
		return propertyKey{Name: name, DataType: "String", Cardinality: "SINGLE"}
	}
	return schemaDoc{
		PropertyKeys: []propertyKey{
			stringKey("name"),
			stringKey("location"),
			stringKey("title"),
			stringKey("company"),
			stringKey("enddate"),
			stringKey("startdate"),
			stringKey("hash"),
		},
		VertexLabels: []label{{Name: "company"}, {Name: "contract"}, {Name: "location"}},
		EdgeLabels: []edgeLabel{
			{Name: "companies", Multiplicity: "MULTI"},
			{Name: "locations", Multiplicity: "MULTI"},
		},
		VertexIndexes: []index{
			{Name: "vByTitle", PropertyKeys: []string{"title"}, Composite: true, Unique: false},
			{Name: "vByLocation", PropertyKeys: []string{"location"}, Composite: true, Unique: false},
			{Name: "vByCompany", PropertyKeys: []string{"company"}, Composite: true, Unique: false},
		},
		EdgeIndexes: []index{
			{Name: "eByCompanies", PropertyKeys: []string{"company"}, Composite: true, Unique: false},
			{Name: "eByLocations", PropertyKeys: []string{"location"}, Composite: true, Unique: false},
		},
	}
}
