package storage

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

const DefaultPath = "./config/keystore.json"

var ErrKeyNotFound = errors.New("key not found")

// Keystore keeps named key pairs in a JSON file.
type Keystore struct {
	mu   sync.Mutex
	path string
}

// Open opens the keystore at path, creating the file and its directory if
// they don't exist.
func Open(path string) (*Keystore, error) {
	if path == "" {
		path = DefaultPath
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("could not create keystore directory: %w", err)
	}

	// Initialize with empty file if it doesn't exist
	if _, err := os.Stat(path); os.IsNotExist(err) {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return nil, fmt.Errorf("could not create keystore file: %w", err)
		}
		file.Close()
	} else if err != nil {
		return nil, fmt.Errorf("could not check keystore file: %w", err)
	}

	return &Keystore{path: path}, nil
}

// Path returns the location of the keystore file.
func (ks *Keystore) Path() string {
	return ks.path
}

func (ks *Keystore) read() (*keystoreFile, error) {
	data, err := os.ReadFile(ks.path)
	if err != nil {
		return nil, fmt.Errorf("could not read keystore file: %w", err)
	}

	var f keystoreFile
	if len(data) == 0 {
		return &f, nil
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("could not parse keystore file: %w", err)
	}
	return &f, nil
}

func (ks *Keystore) write(f *keystoreFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal keystore: %w", err)
	}

	if err := os.WriteFile(ks.path, data, 0600); err != nil {
		return fmt.Errorf("could not write keystore file: %w", err)
	}
	return nil
}

// Get returns the key pair stored under name.
func (ks *Keystore) Get(name string) (solana.PrivateKey, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	f, err := ks.read()
	if err != nil {
		return nil, err
	}

	for _, rec := range f.Keys {
		if rec.Name != name {
			continue
		}

		// Decode the base64 private key string back to bytes
		privateKeyBytes, err := base64.StdEncoding.DecodeString(rec.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("could not decode private key %q: %w", name, err)
		}
		if len(privateKeyBytes) != solana.PrivateKeyLength {
			return nil, fmt.Errorf("invalid private key length for %q: expected %d, got %d", name, solana.PrivateKeyLength, len(privateKeyBytes))
		}
		return solana.PrivateKey(privateKeyBytes), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, name)
}

// Save stores key under name, replacing any key already stored there.
func (ks *Keystore) Save(name string, key solana.PrivateKey) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("key name is required")
	}
	if len(key) != solana.PrivateKeyLength {
		return fmt.Errorf("invalid private key length: expected %d, got %d", solana.PrivateKeyLength, len(key))
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	f, err := ks.read()
	if err != nil {
		return err
	}

	rec := KeyRecord{
		Name:       name,
		PrivateKey: base64.StdEncoding.EncodeToString(key),
	}

	replaced := false
	for i := range f.Keys {
		if f.Keys[i].Name == name {
			f.Keys[i] = rec
			replaced = true
		}
	}
	if !replaced {
		f.Keys = append(f.Keys, rec)
	}
	return ks.write(f)
}

// Names lists the stored key names in sorted order.
func (ks *Keystore) Names() ([]string, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	f, err := ks.read()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(f.Keys))
	for _, rec := range f.Keys {
		names = append(names, rec.Name)
	}
	sort.Strings(names)
	return names, nil
}

// GetOrCreate returns the key stored under name, generating and saving a new
// one if there is none.
func (ks *Keystore) GetOrCreate(name string) (solana.PrivateKey, bool, error) {
	key, err := ks.Get(name)
	if err == nil {
		return key, false, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, false, err
	}

	key = solana.NewWallet().PrivateKey
	if err := ks.Save(name, key); err != nil {
		return nil, false, err
	}
	return key, true, nil
}

// Close exists for symmetry with other stores; the file is not held open.
func (ks *Keystore) Close() error {
	return nil
}

// ParsePrivateKey accepts a key pair either as a JSON byte array, the format
// written by solana-keygen, or as a base58 string.
func ParsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)

	var raw []byte
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("failed to unmarshal key bytes: %w", err)
		}
		raw = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("key byte %d out of range: %d", i, v)
			}
			raw[i] = byte(v)
		}
	} else {
		decoded, err := base58.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base58 key: %w", err)
		}
		raw = decoded
	}

	if len(raw) != solana.PrivateKeyLength {
		return nil, fmt.Errorf("invalid private key length: expected %d, got %d", solana.PrivateKeyLength, len(raw))
	}

	// the trailing half must be the public key of the leading seed
	if !bytes.Equal(ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize]), raw) {
		return nil, errors.New("invalid private key: public half does not match seed")
	}
	return solana.PrivateKey(raw), nil
}

// LoadKeypairFile reads a solana-keygen key pair file.
func LoadKeypairFile(path string) (solana.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key pair file: %w", err)
	}
	return ParsePrivateKey(string(data))
}
