package storage

// KeyRecord is one named key pair as stored in the keystore file.
type KeyRecord struct {
	Name       string `json:"name"`
	PrivateKey string `json:"private_key"` // Stored as base64 encoded string
}

// keystoreFile is the on-disk layout of the keystore.
type keystoreFile struct {
	Keys []KeyRecord `json:"keys"`
}
