package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"docingest/internal/domain"
	"docingest/internal/port"
)

var _ port.VectorStore = (*QdrantStore)(nil)

// QdrantStore talks to a Qdrant server over its REST API.
type QdrantStore struct {
	client *resty.Client
}

type qdrantError struct {
	Status any    `json:"status"`
	Error  string `json:"error"`
}

type qdrantSearchResult struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

type qdrantCollectionInfo struct {
	Status              string `json:"status"`
	VectorsCount        int    `json:"vectors_count"`
	IndexedVectorsCount int    `json:"indexed_vectors_count"`
	PointsCount         int    `json:"points_count"`
}

func NewQdrantStore(baseURL, apiKey string, timeout time.Duration) *QdrantStore {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryCondition)
	if apiKey != "" {
		client.SetHeader("api-key", apiKey)
	}
	return &QdrantStore{client: client}
}

func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

// EnsureCollection creates a cosine collection unless one already exists.
func (q *QdrantStore) EnsureCollection(ctx context.Context, name string, dimension int) error {
	_, err := q.CollectionInfo(ctx, name)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return err
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return q.do(ctx, http.MethodPut, "/collections/"+name, body, nil)
}

func (q *QdrantStore) Upsert(ctx context.Context, collection string, items []port.VectorItem) error {
	if len(items) == 0 {
		return nil
	}
	points := make([]map[string]any, 0, len(items))
	for _, item := range items {
		payload := item.Payload
		if payload == nil {
			payload = domain.NewMetadata()
		}
		points = append(points, map[string]any{
			"id":      item.ID,
			"vector":  item.Vector,
			"payload": payload,
		})
	}
	path := fmt.Sprintf("/collections/%s/points?wait=true", collection)
	return q.do(ctx, http.MethodPut, path, map[string]any{"points": points}, nil)
}

func buildFilter(filters map[string]string) map[string]any {
	if len(filters) == 0 {
		return nil
	}
	must := make([]any, 0, len(filters))
	for key, val := range filters {
		must = append(must, map[string]any{
			"key":   key,
			"match": map[string]any{"value": val},
		})
	}
	return map[string]any{"must": must}
}

func (q *QdrantStore) Search(ctx context.Context, collection string, query []float32, limit int, filters map[string]string) ([]domain.ScoredPoint, error) {
	request := map[string]any{
		"vector":       query,
		"limit":        limit,
		"with_payload": true,
	}
	if filter := buildFilter(filters); filter != nil {
		request["filter"] = filter
	}

	var response struct {
		Result []qdrantSearchResult `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", collection)
	if err := q.do(ctx, http.MethodPost, path, request, &response); err != nil {
		return nil, err
	}

	points := make([]domain.ScoredPoint, 0, len(response.Result))
	for _, res := range response.Result {
		payload := res.Payload
		if payload == nil {
			payload = make(map[string]any)
		}
		points = append(points, domain.ScoredPoint{
			ID:      fmt.Sprint(res.ID),
			Score:   res.Score,
			Payload: payload,
		})
	}
	return points, nil
}

func (q *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	var response struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := q.do(ctx, http.MethodGet, "/collections", nil, &response); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(response.Result.Collections))
	for _, c := range response.Result.Collections {
		names = append(names, c.Name)
	}
	return names, nil
}

func (q *QdrantStore) CollectionInfo(ctx context.Context, name string) (*domain.CollectionInfo, error) {
	var response struct {
		Result qdrantCollectionInfo `json:"result"`
	}
	if err := q.do(ctx, http.MethodGet, "/collections/"+name, nil, &response); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
		}
		return nil, err
	}

	r := response.Result
	return &domain.CollectionInfo{
		Name:                name,
		VectorsCount:        r.VectorsCount,
		IndexedVectorsCount: r.IndexedVectorsCount,
		PointsCount:         r.PointsCount,
		Status:              r.Status,
	}, nil
}

func (q *QdrantStore) DeleteCollection(ctx context.Context, name string) error {
	err := q.do(ctx, http.MethodDelete, "/collections/"+name, nil, nil)
	if isNotFound(err) {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
	}
	return err
}

func (q *QdrantStore) Close() error {
	return nil
}

// statusError carries the HTTP status of a failed Qdrant call.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant: %s (status %d)", e.message, e.code)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

func (q *QdrantStore) do(ctx context.Context, method, path string, body, result any) error {
	req := q.client.R().SetContext(ctx).SetError(&qdrantError{})
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("qdrant: %s %s: %w", method, path, err)
	}
	if resp.StatusCode() < 400 {
		return nil
	}

	message := resp.String()
	if apiErr, ok := resp.Error().(*qdrantError); ok && apiErr != nil {
		if apiErr.Error != "" {
			message = apiErr.Error
		} else if s, ok := apiErr.Status.(map[string]any); ok && s["error"] != nil {
			message = fmt.Sprint(s["error"])
		}
	}
	return &statusError{code: resp.StatusCode(), message: message}
}
