package store

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nrenier/ICorNet-sub000/model"
)

// Dataset names the company list a request targets.
type Dataset string

const (
	DatasetCompanies      Dataset = "companies"
	DatasetStartup        Dataset = "startup"
	DatasetFederterziario Dataset = "federterziario"
)

// DatasetForReportType maps a report_type to the company list it draws from.
func DatasetForReportType(reportType string) Dataset {
	switch reportType {
	case model.ReportTypeStartup:
		return DatasetStartup
	case model.ReportTypeFederterziario, model.ReportTypeFederterziarioChain:
		return DatasetFederterziario
	default:
		return DatasetCompanies
	}
}

// Fixtures holds the company lists served by the development backend.
type Fixtures struct {
	Companies               []model.Entity `yaml:"companies"`
	StartupCompanies        []model.Entity `yaml:"startup_companies"`
	FederterziarioCompanies []model.Entity `yaml:"federterziario_companies"`
}

// LoadFixtures reads fixtures from a YAML file. An empty path returns the
// built-in set.
func LoadFixtures(path string) (*Fixtures, error) {
	if path == "" {
		return DefaultFixtures(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}

	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	return &f, nil
}

// List returns the companies of a dataset.
func (f *Fixtures) List(ds Dataset) []model.Entity {
	switch ds {
	case DatasetStartup:
		return f.StartupCompanies
	case DatasetFederterziario:
		return f.FederterziarioCompanies
	default:
		return f.Companies
	}
}

// Find looks a company up by exact name.
func (f *Fixtures) Find(ds Dataset, name string) (model.Entity, bool) {
	for _, e := range f.List(ds) {
		if e.Name() == name {
			return e, true
		}
	}
	return nil, false
}

// Sectors returns the sector values of an entity, from "sector" or "settore".
func Sectors(e model.Entity) []string {
	if s := e.Strings("settore"); len(s) > 0 {
		return s
	}
	return e.Strings("sector")
}

// SectorDistribution counts companies per sector over the main dataset,
// largest first.
func (f *Fixtures) SectorDistribution() []model.SectorCount {
	counts := make(map[string]int)
	for _, e := range f.Companies {
		for _, s := range Sectors(e) {
			counts[s]++
		}
	}
	out := make([]model.SectorCount, 0, len(counts))
	for s, n := range counts {
		out = append(out, model.SectorCount{Settore: s, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Settore < out[j].Settore
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// BySector returns the main-dataset companies classified under sector,
// compared case-insensitively.
func (f *Fixtures) BySector(sector string) []model.Entity {
	out := []model.Entity{}
	for _, e := range f.Companies {
		for _, s := range Sectors(e) {
			if strings.EqualFold(s, sector) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// DefaultFixtures is a small built-in dataset.
func DefaultFixtures() *Fixtures {
	return &Fixtures{
		Companies: []model.Entity{
			{"name": "AlphaTech S.r.l.", "settore": "ICT", "classificazione": []any{"Software", "Cloud"}, "regione": "Lazio"},
			{"name": "Beta Meccanica S.p.A.", "settore": "Manifattura", "classificazione": []any{"Meccanica di precisione"}, "regione": "Lombardia"},
			{"name": "Gamma Energia S.r.l.", "settore": "Energia", "classificazione": []any{"Rinnovabili"}, "regione": "Puglia"},
			{"name": "Delta Aerospazio S.p.A.", "settore": "Aerospazio", "classificazione": []any{"Difesa", "Componentistica"}, "regione": "Campania"},
			{"name": "Epsilon Data S.r.l.", "settore": "ICT", "classificazione": []any{"Cybersecurity"}, "regione": "Piemonte"},
			{"name": "Zeta Logistica S.r.l.", "settore": "Trasporti", "classificazione": []any{"Logistica"}, "regione": "Veneto"},
		},
		StartupCompanies: []model.Entity{
			{"name": "NeuroLab", "settore": "ICT", "tecnologie": []any{"AI", "Computer Vision"}, "anno_fondazione": 2021},
			{"name": "GreenGrid", "settore": "Energia", "tecnologie": []any{"Smart Grid", "IoT"}, "anno_fondazione": 2020},
			{"name": "OrbitWorks", "settore": "Aerospazio", "tecnologie": []any{"Nanosatelliti"}, "anno_fondazione": 2022},
		},
		FederterziarioCompanies: []model.Entity{
			{"name": "Servizi Integrati Roma", "settore": "Servizi", "categoria": "Facility management"},
			{"name": "Consulenza Nord", "settore": "Consulenza", "categoria": "Formazione"},
			{"name": "Turismo Sud", "settore": "Servizi", "categoria": "Turismo"},
		},
	}
}
