package keys

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-i2p/common/base64"
	"github.com/go-i2p/go-peersec/lib/config"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const (
	keystoreVersion = 1
	keystoreKeyType = "ed25519"
)

// keystoreFile is the on-disk representation of a local identity.
type keystoreFile struct {
	Version    int       `yaml:"version"`
	Type       string    `yaml:"type"`
	Identity   string    `yaml:"identity"`
	PrivateKey string    `yaml:"private_key"`
	Created    time.Time `yaml:"created"`
}

// Keystore holds the local identity key loaded from dir/name.
type Keystore struct {
	dir    string
	name   string
	signer *Ed25519Signer
}

// OpenKeystore loads the key stored at dir/name, generating and storing a
// new key if the file does not exist yet.
func OpenKeystore(dir, name string) (*Keystore, error) {
	fullPath := filepath.Join(dir, name)
	log.WithFields(logger.Fields{
		"at":   "OpenKeystore",
		"path": fullPath,
	}).Debug("Opening keystore")

	ks := &Keystore{dir: dir, name: name}
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		signer, err := GenerateEd25519Signer()
		if err != nil {
			return nil, err
		}
		ks.signer = signer
		if err := ks.StoreKeys(); err != nil {
			return nil, err
		}
		log.WithFields(logger.Fields{
			"at":       "OpenKeystore",
			"identity": signer.Identity().Short(),
		}).Info("Generated new identity key")
		return ks, nil
	}

	signer, err := loadSigner(fullPath)
	if err != nil {
		return nil, err
	}
	ks.signer = signer
	return ks, nil
}

func loadSigner(path string) (*Ed25519Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to read keystore %s", path)
	}
	var file keystoreFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, oops.Wrapf(err, "failed to parse keystore %s", path)
	}
	if file.Version != keystoreVersion || file.Type != keystoreKeyType {
		return nil, ErrInvalidKeystore
	}
	private, err := base64.DecodeString(file.PrivateKey)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to decode private key in %s", path)
	}
	signer, err := NewEd25519Signer(private)
	if err != nil {
		return nil, err
	}
	if file.Identity != "" && Identity(file.Identity) != signer.Identity() {
		return nil, ErrInvalidKeystore
	}
	return signer, nil
}

// Signer returns the local identity signer.
func (ks *Keystore) Signer() *Ed25519Signer {
	return ks.signer
}

// Path returns the keystore file path.
func (ks *Keystore) Path() string {
	return filepath.Join(ks.dir, ks.name)
}

// StoreKeys writes the key to disk with config.SecureFilePermissions inside
// a config.SecureDirPermissions directory.
func (ks *Keystore) StoreKeys() error {
	if err := config.CreateSecureDirectory(ks.dir); err != nil {
		return err
	}
	file := keystoreFile{
		Version:    keystoreVersion,
		Type:       keystoreKeyType,
		Identity:   ks.signer.Identity().String(),
		PrivateKey: base64.EncodeToString(ks.signer.PrivateKey()),
		Created:    time.Now().UTC(),
	}
	raw, err := yaml.Marshal(&file)
	if err != nil {
		return oops.Wrapf(err, "failed to encode keystore")
	}
	return config.WriteSecureFile(ks.Path(), raw)
}

// RegenerateKeystore replaces the key at dir/name with a new one.
func RegenerateKeystore(dir, name string) (*Keystore, error) {
	signer, err := GenerateEd25519Signer()
	if err != nil {
		return nil, err
	}
	ks := &Keystore{dir: dir, name: name, signer: signer}
	if err := ks.StoreKeys(); err != nil {
		return nil, err
	}
	log.WithFields(logger.Fields{
		"at":       "RegenerateKeystore",
		"identity": signer.Identity().Short(),
	}).Warn("Replaced identity key")
	return ks, nil
}
