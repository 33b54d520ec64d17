package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ServerProfile is one named litebridge server
type ServerProfile struct {
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
}

// Profiles is the client-side list of known servers
type Profiles struct {
	DefaultServer string                   `yaml:"default_server"`
	Servers       map[string]ServerProfile `yaml:"servers"`
	path          string
}

// DefaultProfilesPath returns ~/.litebridge/servers.yaml
func DefaultProfilesPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".litebridge", "servers.yaml"), nil
}

// LoadProfiles reads the profiles at path. A missing file yields a single
// "local" profile pointing at fallbackURL and is written out.
func LoadProfiles(path, fallbackURL string) (*Profiles, error) {
	p := &Profiles{
		path:    path,
		Servers: make(map[string]ServerProfile),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		p.DefaultServer = "local"
		p.Servers["local"] = ServerProfile{
			URL:         fallbackURL,
			Description: "Local litebridge server",
		}
		if err := p.Save(); err != nil {
			return nil, err
		}
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading profiles %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decoding profiles %s: %w", path, err)
	}
	if p.Servers == nil {
		p.Servers = make(map[string]ServerProfile)
	}
	p.path = path
	return p, nil
}

// Save writes the profiles back to disk
func (p *Profiles) Save() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o600)
}

// AddServer adds or replaces a profile
func (p *Profiles) AddServer(name, url, description string) error {
	if name == "" {
		return fmt.Errorf("server name cannot be empty")
	}
	if url == "" {
		return fmt.Errorf("server URL cannot be empty")
	}

	p.Servers[name] = ServerProfile{URL: url, Description: description}

	// The first server becomes the default
	if p.DefaultServer == "" {
		p.DefaultServer = name
	}
	return p.Save()
}

// RemoveServer removes a profile
func (p *Profiles) RemoveServer(name string) error {
	if _, exists := p.Servers[name]; !exists {
		return fmt.Errorf("server '%s' not found", name)
	}

	delete(p.Servers, name)

	if p.DefaultServer == name {
		p.DefaultServer = ""
		if names := p.Names(); len(names) > 0 {
			p.DefaultServer = names[0]
		}
	}
	return p.Save()
}

// SetDefault sets the default profile
func (p *Profiles) SetDefault(name string) error {
	if _, exists := p.Servers[name]; !exists {
		return fmt.Errorf("server '%s' not found", name)
	}
	p.DefaultServer = name
	return p.Save()
}

// Server returns the named profile, or the default one when name is empty
func (p *Profiles) Server(name string) (*ServerProfile, error) {
	if name == "" {
		name = p.DefaultServer
	}
	server, exists := p.Servers[name]
	if !exists {
		return nil, fmt.Errorf("server '%s' not found", name)
	}
	return &server, nil
}

// Names lists profile names in order
func (p *Profiles) Names() []string {
	names := make([]string, 0, len(p.Servers))
	for name := range p.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
