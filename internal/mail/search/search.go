package search

import (
	"context"
	"log"
	"sort"

	maildomain "mailboard-backend/internal/mail/domain"
	mailrepo "mailboard-backend/internal/mail/repository"
	"mailboard-backend/pkg/fuzzy"
)

const (
	// recentWindow bounds how many mirrored messages fuzzy search scans.
	recentWindow = 1000
	// similarityFloor drops semantic hits that are barely related.
	similarityFloor = 0.65
)

// Engine retrieves mirrored messages by lexical or semantic similarity.
type Engine struct {
	messageRepo mailrepo.MessageRepository
	embedder    maildomain.Embedder
	index       maildomain.VectorIndex
}

func NewEngine(messageRepo mailrepo.MessageRepository, embedder maildomain.Embedder, index maildomain.VectorIndex) *Engine {
	return &Engine{
		messageRepo: messageRepo,
		embedder:    embedder,
		index:       index,
	}
}

// Fuzzy ranks the user's recent messages by weighted typo-tolerant match
// across subject, sender, and snippet.
func (e *Engine) Fuzzy(ctx context.Context, userID, query string, limit int) ([]*maildomain.Message, error) {
	if limit <= 0 {
		limit = 20
	}

	recent, err := e.messageRepo.Recent(userID, recentWindow)
	if err != nil {
		return nil, err
	}

	type scored struct {
		msg   *maildomain.Message
		score float64
	}
	matches := make([]scored, 0, len(recent))
	for _, msg := range recent {
		score := fuzzy.Score(query, msg.Subject, msg.From, msg.FromName, msg.Snippet)
		if score <= 0 {
			continue
		}
		matches = append(matches, scored{msg: msg, score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	results := make([]*maildomain.Message, len(matches))
	for i, m := range matches {
		results[i] = m.msg
	}
	return results, nil
}

// Semantic embeds the query and runs a nearest-neighbor search over the
// user's stored vectors, dropping hits below the similarity floor. Any
// failure on the vector path falls back to fuzzy search.
func (e *Engine) Semantic(ctx context.Context, userID, query string, limit int) ([]*maildomain.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	if e.embedder == nil || e.index == nil {
		return e.Fuzzy(ctx, userID, query, limit)
	}

	embedding := e.embedder.Embed(ctx, query)
	if len(embedding) == 0 {
		log.Printf("[Search] Query embedding unavailable, falling back to fuzzy search")
		return e.Fuzzy(ctx, userID, query, limit)
	}

	ids, similarities, err := e.index.Query(ctx, userID, embedding, limit)
	if err != nil {
		log.Printf("[Search] Vector search failed, falling back to fuzzy search: %v", err)
		return e.Fuzzy(ctx, userID, query, limit)
	}

	kept := make([]string, 0, len(ids))
	keptSim := make(map[string]float64, len(ids))
	for i, id := range ids {
		if i < len(similarities) && similarities[i] < similarityFloor {
			continue
		}
		kept = append(kept, id)
		if i < len(similarities) {
			keptSim[id] = similarities[i]
		}
	}
	if len(kept) == 0 {
		return []*maildomain.Message{}, nil
	}

	messages, err := e.messageRepo.GetByMessageIDs(userID, kept)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return keptSim[messages[i].MessageID] > keptSim[messages[j].MessageID]
	})
	return messages, nil
}
