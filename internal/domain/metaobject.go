package domain

// MetaobjectField is one key/value pair of a metaobject
type MetaobjectField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Metaobject is a Shopify custom data entry
type Metaobject struct {
	ID        string            `json:"id"`
	Handle    string            `json:"handle"`
	Type      string            `json:"type"`
	UpdatedAt string            `json:"updatedAt,omitempty"`
	Fields    []MetaobjectField `json:"fields"`
}

// MetaobjectUpsert is a request to create or update a metaobject by handle
type MetaobjectUpsert struct {
	Type   string            `json:"type"`
	Handle string            `json:"handle"`
	Fields []MetaobjectField `json:"fields"`
}
