// Package csc serves country, state and city reference data for address
// fields. The dataset is compiled into the binary.
package csc

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data.yaml
var rawData []byte

type Country struct {
	Name      string `yaml:"name" json:"name"`
	IsoCode   string `yaml:"iso_code" json:"isoCode"`
	PhoneCode string `yaml:"phone_code" json:"phonecode"`
	Currency  string `yaml:"currency" json:"currency"`

	States []stateRecord `yaml:"states" json:"-"`
}

type State struct {
	Name        string `json:"name"`
	IsoCode     string `json:"isoCode"`
	CountryCode string `json:"countryCode"`
}

type City struct {
	Name        string `json:"name"`
	StateCode   string `json:"stateCode"`
	CountryCode string `json:"countryCode"`
}

type stateRecord struct {
	Name    string   `yaml:"name"`
	IsoCode string   `yaml:"iso_code"`
	Cities  []string `yaml:"cities"`
}

// Directory answers lookups by display name.
type Directory struct {
	countries []Country
}

var (
	defaultOnce sync.Once
	defaultDir  *Directory
	defaultErr  error
)

// Default returns the directory built from the embedded dataset.
func Default() (*Directory, error) {
	defaultOnce.Do(func() {
		defaultDir, defaultErr = Parse(rawData)
	})
	return defaultDir, defaultErr
}

// Parse builds a directory from YAML.
func Parse(data []byte) (*Directory, error) {
	var doc struct {
		Countries []Country `yaml:"countries"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse csc data: %w", err)
	}
	return &Directory{countries: doc.Countries}, nil
}

// Countries returns every country.
func (d *Directory) Countries() []Country {
	out := make([]Country, len(d.countries))
	copy(out, d.countries)
	return out
}

// States returns the states of the named country; ok is false for an
// unknown country.
func (d *Directory) States(country string) (states []State, ok bool) {
	c := d.country(country)
	if c == nil {
		return nil, false
	}
	states = make([]State, 0, len(c.States))
	for _, s := range c.States {
		states = append(states, State{Name: s.Name, IsoCode: s.IsoCode, CountryCode: c.IsoCode})
	}
	return states, true
}

// Cities returns the cities of the named state. The error distinguishes an
// unknown country from an unknown state.
func (d *Directory) Cities(country, state string) ([]City, error) {
	c := d.country(country)
	if c == nil {
		return nil, ErrCountryNotFound
	}
	for _, s := range c.States {
		if s.Name != state {
			continue
		}
		cities := make([]City, 0, len(s.Cities))
		for _, name := range s.Cities {
			cities = append(cities, City{Name: name, StateCode: s.IsoCode, CountryCode: c.IsoCode})
		}
		return cities, nil
	}
	return nil, ErrStateNotFound
}

func (d *Directory) country(name string) *Country {
	for i := range d.countries {
		if d.countries[i].Name == name {
			return &d.countries[i]
		}
	}
	return nil
}
