package models

// Customer is stored as a JSON object in a single BLOB column through the
// jsonblob serializer. An empty or undecodable column reads back as a nil
// *Customer.
type Customer struct {
	Variable1 string `json:"variable1"`
	Variable2 string `json:"variable2"`
}
