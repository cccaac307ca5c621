package elastic

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"admin-service/internal/client"
	"admin-service/internal/config"
	"admin-service/internal/models"
	"admin-service/internal/util"
)

// UserSearch queries the platform's user index. The index is fed by the
// platform's own pipeline; this service treats it as a read model for
// promotion candidates and dashboard counts.
type UserSearch interface {
	SearchEligible(ctx context.Context, term string, limit int) ([]*models.PlatformUser, error)
	CountUsers(ctx context.Context) (int64, error)
	CountEligible(ctx context.Context) (int64, error)
}

type userSearch struct {
	client *client.ESClient
	index  string
}

func NewUserSearch(es *client.ESClient, cfg *config.Config) UserSearch {
	return &userSearch{
		client: es,
		index:  cfg.Elasticsearch.UserIndex,
	}
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source userDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type userDocument struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	KYCStatus string    `json:"kyc_status"`
	IsBanned  bool      `json:"is_banned"`
	CreatedAt time.Time `json:"created_at"`
}

// eligibleFilter restricts hits to promotable accounts.
func eligibleFilter() []map[string]interface{} {
	return []map[string]interface{}{
		{"term": map[string]interface{}{"kyc_status": models.KYCVerified}},
		{"term": map[string]interface{}{"is_banned": false}},
	}
}

// SearchEligible returns KYC-verified, unbanned users matching term
// against email or full name. An empty term lists the most recent
// eligible accounts.
func (s *userSearch) SearchEligible(ctx context.Context, term string, limit int) ([]*models.PlatformUser, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	boolQuery := map[string]interface{}{
		"filter": eligibleFilter(),
	}
	if term != "" {
		boolQuery["must"] = []map[string]interface{}{
			{
				"multi_match": map[string]interface{}{
					"query":  term,
					"fields": []string{"email", "full_name"},
					"type":   "best_fields",
				},
			},
		}
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"size":  limit,
		"sort": []map[string]interface{}{
			{"created_at": map[string]interface{}{"order": "desc"}},
		},
	}

	res, err := s.client.Search(ctx, s.index, query)
	if err != nil {
		util.Error("Failed to search eligible users",
			zap.String("term", term),
			zap.Error(err))
		return nil, fmt.Errorf("failed to search eligible users: %w", err)
	}

	var parsed searchResponse
	if err := s.client.ParseResponse(res, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse user search response: %w", err)
	}

	users := make([]*models.PlatformUser, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		doc := hit.Source
		users = append(users, &models.PlatformUser{
			UserID:    doc.UserID,
			Email:     doc.Email,
			FullName:  doc.FullName,
			KYCStatus: doc.KYCStatus,
			IsBanned:  doc.IsBanned,
			CreatedAt: doc.CreatedAt,
		})
	}

	return users, nil
}

func (s *userSearch) CountUsers(ctx context.Context) (int64, error) {
	return s.count(ctx, map[string]interface{}{
		"match_all": map[string]interface{}{},
	})
}

func (s *userSearch) CountEligible(ctx context.Context) (int64, error) {
	return s.count(ctx, map[string]interface{}{
		"bool": map[string]interface{}{"filter": eligibleFilter()},
	})
}

func (s *userSearch) count(ctx context.Context, query map[string]interface{}) (int64, error) {
	res, err := s.client.Search(ctx, s.index, map[string]interface{}{
		"query": query,
		"size":  0,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}

	var parsed searchResponse
	if err := s.client.ParseResponse(res, &parsed); err != nil {
		return 0, fmt.Errorf("failed to parse user count response: %w", err)
	}

	return parsed.Hits.Total.Value, nil
}
