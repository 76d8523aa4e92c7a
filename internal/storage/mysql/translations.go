package mysql

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"dubaihaus/internal/domain"
)

// translationChunk bounds the IN list per statement.
const translationChunk = 500

func sourceHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// FindTranslations returns stored translations keyed by source text.
func (r *Repo) FindTranslations(ctx context.Context, lang string, sources []string) (map[string]string, error) {
	out := make(map[string]string, len(sources))
	srcs := uniqueStrings(sources)
	for start := 0; start < len(srcs); start += translationChunk {
		chunk := srcs[start:min(start+translationChunk, len(srcs))]
		args := make([]any, 0, len(chunk)+1)
		args = append(args, lang)
		for _, s := range chunk {
			args = append(args, sourceHash(s))
		}
		rows, err := r.db.QueryContext(ctx, findTranslationsPrefix+placeholders(len(chunk)), args...)
		if err != nil {
			return nil, fmt.Errorf("find translations: %w", err)
		}
		for rows.Next() {
			var src, tr string
			if err := rows.Scan(&src, &tr); err != nil {
				rows.Close()
				return nil, err
			}
			out[src] = tr
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UpsertTranslations writes entries idempotently: a repeat overwrites the text and usage metadata.
func (r *Repo) UpsertTranslations(ctx context.Context, entries []domain.TranslationEntry) error {
	for start := 0; start < len(entries); start += translationChunk {
		chunk := entries[start:min(start+translationChunk, len(entries))]
		values := make([]string, 0, len(chunk))
		args := make([]any, 0, len(chunk)*6)
		for _, e := range chunk {
			src := strings.TrimSpace(e.Source)
			if src == "" {
				continue
			}
			used := e.LastUsedAt
			if used.IsZero() {
				used = time.Now()
			}
			values = append(values, "(?,?,?,?,?,?)")
			args = append(args, e.Lang, sourceHash(src), src, e.Translated, e.CharCount, used.UTC())
		}
		if len(values) == 0 {
			continue
		}
		q := upsertTranslationsPrefix + strings.Join(values, ",") + upsertTranslationsOnDup
		if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("upsert translations: %w", err)
		}
	}
	return nil
}

func (r *Repo) TouchTranslations(ctx context.Context, lang string, sources []string, at time.Time) error {
	srcs := uniqueStrings(sources)
	for start := 0; start < len(srcs); start += translationChunk {
		chunk := srcs[start:min(start+translationChunk, len(srcs))]
		args := make([]any, 0, len(chunk)+2)
		args = append(args, at.UTC(), lang)
		for _, s := range chunk {
			args = append(args, sourceHash(s))
		}
		if _, err := r.db.ExecContext(ctx, touchTranslationsPrefix+placeholders(len(chunk)), args...); err != nil {
			return fmt.Errorf("touch translations: %w", err)
		}
	}
	return nil
}
