package secrets

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var ErrBadPassphrase = errors.New("secrets: wrong passphrase")

// File is a Store in a single JSON file. Every value is encrypted and
// authenticated with securecookie under keys derived from a passphrase.
type File struct {
	path string
	sc   *securecookie.SecureCookie

	mu  sync.Mutex
	doc fileDoc
}

type fileDoc struct {
	// Check is a bcrypt hash of the passphrase.
	Check  string            `json:"check"`
	Salt   string            `json:"salt"`
	Values map[string]string `json:"values"`
}

// OpenFile opens or creates the store at path.
func OpenFile(path, passphrase string) (*File, error) {
	if passphrase == "" {
		return nil, errors.New("secrets: passphrase required")
	}
	f := &File{path: path}
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := f.create(passphrase); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(b, &f.doc); err != nil {
			return nil, fmt.Errorf("secrets: parse %s: %w", path, err)
		}
		if bcrypt.CompareHashAndPassword([]byte(f.doc.Check), []byte(passphrase)) != nil {
			return nil, ErrBadPassphrase
		}
	}
	if f.doc.Values == nil {
		f.doc.Values = map[string]string{}
	}
	salt, err := base64.StdEncoding.DecodeString(f.doc.Salt)
	if err != nil {
		return nil, fmt.Errorf("secrets: bad salt: %w", err)
	}
	k := argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 64)
	f.sc = securecookie.New(k[:32], k[32:])
	f.sc.MaxAge(0)
	f.sc.SetSerializer(securecookie.JSONEncoder{})
	return f, nil
}

func (f *File) create(passphrase string) error {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	check, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	f.doc = fileDoc{Check: string(check), Salt: base64.StdEncoding.EncodeToString(salt), Values: map[string]string{}}
	return f.save()
}

func (f *File) Path() string { return f.path }

func (f *File) Get(_ context.Context, service, field string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(service, field)
	enc, ok := f.doc.Values[k]
	if !ok {
		return "", ErrNotFound
	}
	var v string
	if err := f.sc.Decode(k, enc, &v); err != nil {
		return "", fmt.Errorf("secrets: decode %s: %w", k, err)
	}
	return v, nil
}

func (f *File) Set(_ context.Context, service, field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(service, field)
	enc, err := f.sc.Encode(k, value)
	if err != nil {
		return err
	}
	f.doc.Values[k] = enc
	return f.save()
}

func (f *File) Delete(_ context.Context, service, field string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(service, field)
	if _, ok := f.doc.Values[k]; !ok {
		return nil
	}
	delete(f.doc.Values, k)
	return f.save()
}

// save replaces the file atomically.
func (f *File) save() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(f.doc, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".secrets-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
