// internal/adapters/elasticsearch/source.go
package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"care-match-workers/internal/common/logger"
	"care-match-workers/internal/models"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

type Config struct {
	OrganisationsIndex string
	WorkersIndex       string
	Size               int
}

// CandidateSource searches the organisation and worker indices.
type CandidateSource struct {
	transport esapi.Transport
	cfg       Config
	logger    logger.Logger
}

func NewCandidateSource(transport esapi.Transport, cfg Config, log logger.Logger) *CandidateSource {
	if cfg.Size <= 0 {
		cfg.Size = 50
	}
	return &CandidateSource{
		transport: transport,
		cfg:       cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "candidate-source"}),
	}
}

type geoDoc struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (g *geoDoc) point() *models.GeoPoint {
	if g == nil {
		return nil
	}
	return &models.GeoPoint{Lat: g.Lat, Lng: g.Lon}
}

type workerDoc struct {
	ID               string   `json:"id"`
	OrganisationID   string   `json:"organisation_id"`
	Name             string   `json:"name"`
	Capabilities     []string `json:"capabilities"`
	ServiceTypes     []string `json:"service_types"`
	Location         *geoDoc  `json:"location"`
	ReliabilityScore float64  `json:"reliability_score"`
	Verified         bool     `json:"verified"`
	Active           bool     `json:"active"`
	CanDrive         bool     `json:"can_drive"`
	HasClearance     bool     `json:"has_clearance"`
	Gender           string   `json:"gender"`
	Languages        []string `json:"languages"`
}

func (d workerDoc) toModel(hitID string) models.WorkerCandidate {
	id := d.ID
	if id == "" {
		id = hitID
	}
	return models.WorkerCandidate{
		ID:               id,
		OrganisationID:   d.OrganisationID,
		Name:             d.Name,
		Capabilities:     d.Capabilities,
		ServiceTypes:     d.ServiceTypes,
		Location:         d.Location.point(),
		ReliabilityScore: d.ReliabilityScore,
		Verified:         d.Verified,
		Active:           d.Active,
		CanDrive:         d.CanDrive,
		HasClearance:     d.HasClearance,
		Gender:           d.Gender,
		Languages:        d.Languages,
	}
}

type organisationDoc struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Type             string      `json:"type"`
	Capabilities     []string    `json:"capabilities"`
	ServiceTypes     []string    `json:"service_types"`
	Location         *geoDoc     `json:"location"`
	ReliabilityScore float64     `json:"reliability_score"`
	Verified         bool        `json:"verified"`
	Active           bool        `json:"active"`
	VehicleIDs       []string    `json:"vehicle_ids"`
	Workers          []workerDoc `json:"workers"`
}

func (d organisationDoc) toModel(hitID string) models.Candidate {
	id := d.ID
	if id == "" {
		id = hitID
	}
	c := models.Candidate{
		ID:               id,
		Name:             d.Name,
		Type:             models.OrganisationType(d.Type),
		Capabilities:     d.Capabilities,
		ServiceTypes:     d.ServiceTypes,
		Location:         d.Location.point(),
		ReliabilityScore: d.ReliabilityScore,
		Verified:         d.Verified,
		Active:           d.Active,
		VehicleIDs:       d.VehicleIDs,
	}
	for _, w := range d.Workers {
		wc := w.toModel("")
		if wc.OrganisationID == "" {
			wc.OrganisationID = id
		}
		c.Workers = append(c.Workers, wc)
	}
	return c
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *CandidateSource) SearchOrganisations(ctx context.Context, spec models.MatchSpec) ([]models.Candidate, error) {
	var out []models.Candidate
	err := s.search(ctx, s.cfg.OrganisationsIndex, buildOrganisationQuery(spec, s.cfg.Size), func(id string, raw json.RawMessage) error {
		var doc organisationDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		out = append(out, doc.toModel(id))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Organisation search complete", map[string]interface{}{
		"requestId": spec.RequestID,
		"hits":      len(out),
	})
	return out, nil
}

func (s *CandidateSource) SearchWorkers(ctx context.Context, spec models.MatchSpec) ([]models.WorkerCandidate, error) {
	var out []models.WorkerCandidate
	err := s.search(ctx, s.cfg.WorkersIndex, buildWorkerQuery(spec, s.cfg.Size), func(id string, raw json.RawMessage) error {
		var doc workerDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		out = append(out, doc.toModel(id))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Worker search complete", map[string]interface{}{
		"requestId": spec.RequestID,
		"hits":      len(out),
	})
	return out, nil
}

func (s *CandidateSource) search(ctx context.Context, index string, query map[string]interface{}, each func(id string, raw json.RawMessage) error) error {
	body, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("encode %s query: %w", index, err)
	}

	req := esapi.SearchRequest{
		Index: []string{index},
		Body:  strings.NewReader(string(body)),
	}

	res, err := req.Do(ctx, s.transport)
	if err != nil {
		return fmt.Errorf("search %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("search %s: %s: %s", index, res.Status(), strings.TrimSpace(string(detail)))
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return fmt.Errorf("decode %s response: %w", index, err)
	}

	for _, hit := range r.Hits.Hits {
		if err := each(hit.ID, hit.Source); err != nil {
			return fmt.Errorf("decode %s hit %s: %w", index, hit.ID, err)
		}
	}
	return nil
}
