package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minjae-dev/stockpulse/internal/contracts"
	"github.com/minjae-dev/stockpulse/pkg/logger"
)

// RecommendationRepository persists high-quality consultation results.
// The table is keyed (symbol, recommend_date) so a recommendation is written
// at most once per symbol per calendar day, however many concurrent
// completions race for it.
type RecommendationRepository struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

// NewRecommendationRepository wires the repository.
func NewRecommendationRepository(db *pgxpool.Pool, log *logger.Logger) *RecommendationRepository {
	return &RecommendationRepository{
		db:     db,
		logger: log.WithComponent("store"),
	}
}

// InsertIfAbsent writes the recommendation unless a row for the same
// (symbol, date) already exists. Returns whether a row was inserted.
func (r *RecommendationRepository) InsertIfAbsent(ctx context.Context, rec contracts.Recommendation) (bool, error) {
	query := `
		INSERT INTO recommendations (
			symbol, recommend_date, rating, confidence,
			entry_price, entry_timing, profit_target, stop_loss, time_horizon,
			reasoning, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (symbol, recommend_date) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query,
		rec.Symbol,
		rec.RecommendDate.Format("2006-01-02"),
		rec.Rating,
		rec.Confidence,
		rec.EntryPrice,
		rec.EntryTiming,
		rec.ProfitTarget,
		rec.StopLoss,
		rec.TimeHorizon,
		rec.Reasoning,
	)
	if err != nil {
		return false, fmt.Errorf("insert recommendation %s: %w", rec.Symbol, err)
	}

	inserted := tag.RowsAffected() > 0
	if !inserted {
		r.logger.WithFields(map[string]interface{}{
			"symbol": rec.Symbol,
			"date":   rec.RecommendDate.Format("2006-01-02"),
		}).Debug("Recommendation already recorded for today")
	}

	return inserted, nil
}

// ListFilter narrows List results. Zero values mean "no constraint".
type ListFilter struct {
	Symbol    string
	Since     time.Time
	MinRating float64
	Limit     uint64
}

// List returns recommendations matching the filter, newest first.
func (r *RecommendationRepository) List(ctx context.Context, filter ListFilter) ([]contracts.Recommendation, error) {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("symbol", "recommend_date", "rating", "confidence",
			"entry_price", "entry_timing", "profit_target", "stop_loss", "time_horizon",
			"reasoning", "created_at").
		From("recommendations").
		OrderBy("recommend_date DESC, symbol ASC")

	if filter.Symbol != "" {
		builder = builder.Where(sq.Eq{"symbol": filter.Symbol})
	}
	if !filter.Since.IsZero() {
		builder = builder.Where(sq.GtOrEq{"recommend_date": filter.Since.Format("2006-01-02")})
	}
	if filter.MinRating > 0 {
		builder = builder.Where(sq.GtOrEq{"rating": filter.MinRating})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recommendations query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	defer rows.Close()

	var recs []contracts.Recommendation
	for rows.Next() {
		var rec contracts.Recommendation
		if err := rows.Scan(
			&rec.Symbol,
			&rec.RecommendDate,
			&rec.Rating,
			&rec.Confidence,
			&rec.EntryPrice,
			&rec.EntryTiming,
			&rec.ProfitTarget,
			&rec.StopLoss,
			&rec.TimeHorizon,
			&rec.Reasoning,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return recs, nil
}

// FromResult projects a consultation result onto the durable row shape.
func FromResult(result contracts.ConsultationResult, date time.Time) contracts.Recommendation {
	return contracts.Recommendation{
		Symbol:        result.Symbol,
		RecommendDate: date,
		Rating:        result.Rating,
		Confidence:    result.Confidence,
		EntryPrice:    result.Entry.Price,
		EntryTiming:   result.Entry.Timing,
		ProfitTarget:  result.Exit.ProfitTarget,
		StopLoss:      result.Exit.StopLoss,
		TimeHorizon:   result.Exit.TimeHorizon,
		Reasoning:     result.Reasoning,
	}
}
