package store

import (
	"context"
	"errors"

	"github.com/adaptiverag/metagraph/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// GraphStore persists learned edge weights and discovered relationships, and
// backs the concrete retrieval executors with node lookups.
type GraphStore struct {
	db *pgxpool.Pool
}

func NewGraphStore(db *pgxpool.Pool) *GraphStore {
	return &GraphStore{db: db}
}

func (s *GraphStore) UpsertEdgeWeight(ctx context.Context, e *domain.GraphEdgeWeight) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO meta_graph_edges (source_id, target_id, relation_type, weight, initial_weight, successes, failures, usage_count, last_used_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (source_id, target_id, relation_type) DO UPDATE
		 SET weight = EXCLUDED.weight,
		     successes = EXCLUDED.successes,
		     failures = EXCLUDED.failures,
		     usage_count = EXCLUDED.usage_count,
		     last_used_at = EXCLUDED.last_used_at`,
		e.Key.Source, e.Key.Target, e.Key.Relation,
		e.Weight, e.InitialWeight, e.Successes, e.Failures, e.UsageCount, e.LastUsed,
	)
	return err
}

func (s *GraphStore) SaveRelationship(ctx context.Context, r *domain.LatentRelationship) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO latent_relationships (id, source_entity, target_entity, relation_type, confidence, observations, supporting_text, status, discovered_at, approved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE
		 SET confidence = EXCLUDED.confidence,
		     observations = EXCLUDED.observations,
		     supporting_text = EXCLUDED.supporting_text,
		     status = EXCLUDED.status,
		     approved_at = EXCLUDED.approved_at`,
		r.ID, r.Source, r.Target, r.Relation,
		r.Confidence, r.Observations, r.Support, r.Status, r.DiscoveredAt, r.ApprovedAt,
	)
	return err
}

// UpsertNode seeds or refreshes a graph node. Used by ingestion tooling, not
// by the learning loop itself.
func (s *GraphStore) UpsertNode(ctx context.Context, id, label string, embedding []float32) error {
	var vec *pgvector.Vector
	if len(embedding) > 0 {
		v := pgvector.NewVector(embedding)
		vec = &v
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO graph_nodes (id, label, embedding)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE
		 SET label = EXCLUDED.label,
		     embedding = COALESCE(EXCLUDED.embedding, graph_nodes.embedding)`,
		id, label, vec,
	)
	return err
}

func (s *GraphStore) GetEdgeWeight(ctx context.Context, key domain.EdgeKey) (*domain.GraphEdgeWeight, error) {
	e := &domain.GraphEdgeWeight{Key: key}
	err := s.db.QueryRow(ctx,
		`SELECT weight, initial_weight, successes, failures, usage_count, last_used_at
		 FROM meta_graph_edges
		 WHERE source_id = $1 AND target_id = $2 AND relation_type = $3`,
		key.Source, key.Target, key.Relation,
	).Scan(&e.Weight, &e.InitialWeight, &e.Successes, &e.Failures, &e.UsageCount, &e.LastUsed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (s *GraphStore) SearchNodes(ctx context.Context, embedding []float32, limit int) ([]domain.NodeHit, error) {
	if limit <= 0 {
		limit = 10
	}

	vec := pgvector.NewVector(embedding)
	rows, err := s.db.Query(ctx,
		`SELECT id, label, 1 - (embedding <=> $1) AS score
		 FROM graph_nodes
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		vec, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanHits(rows)
}

func (s *GraphStore) FilterNodes(ctx context.Context, terms []string, limit int) ([]domain.NodeHit, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, label, 1.0 AS score
		 FROM graph_nodes
		 WHERE label ILIKE ANY($1)
		 ORDER BY label
		 LIMIT $2`,
		likePatterns(terms), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanHits(rows)
}

func (s *GraphStore) NeighborEdges(ctx context.Context, nodeID string) ([]domain.GraphEdgeWeight, error) {
	rows, err := s.db.Query(ctx,
		`SELECT source_id, target_id, relation_type, weight, initial_weight, successes, failures, usage_count, last_used_at
		 FROM meta_graph_edges
		 WHERE source_id = $1 OR target_id = $1
		 ORDER BY weight DESC`,
		nodeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []domain.GraphEdgeWeight
	for rows.Next() {
		var e domain.GraphEdgeWeight
		if err := rows.Scan(&e.Key.Source, &e.Key.Target, &e.Key.Relation,
			&e.Weight, &e.InitialWeight, &e.Successes, &e.Failures, &e.UsageCount, &e.LastUsed); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func scanHits(rows pgx.Rows) ([]domain.NodeHit, error) {
	var hits []domain.NodeHit
	for rows.Next() {
		var h domain.NodeHit
		if err := rows.Scan(&h.ID, &h.Label, &h.Score); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func likePatterns(terms []string) []string {
	patterns := make([]string, len(terms))
	for i, t := range terms {
		patterns[i] = "%" + t + "%"
	}
	return patterns
}
