package chroma

import (
	"context"
	"fmt"
	"log"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
)

// Client wraps a Chroma collection used as the semantic index over synced
// messages. Embeddings are computed by the caller and passed in, so the
// collection carries no embedding function of its own.
type Client struct {
	client     chroma.Client
	collection chroma.Collection
}

func NewClient(baseURL, collectionName string) (*Client, error) {
	client, err := chroma.NewHTTPClient(chroma.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	ctx := context.Background()
	collection, err := client.GetOrCreateCollection(ctx, collectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("[Chroma] Initialized collection: %s", collectionName)

	return &Client{
		client:     client,
		collection: collection,
	}, nil
}

// Upsert writes or replaces the document for a message. Using the Gmail
// message ID as the document ID keeps re-syncs idempotent.
func (c *Client) Upsert(ctx context.Context, userID, messageID, text string, embedding []float32) error {
	if len(embedding) == 0 {
		return nil
	}

	metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
		"user_id": userID,
	})
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}

	err = c.collection.Upsert(
		ctx,
		chroma.WithIDs(chroma.DocumentID(messageID)),
		chroma.WithMetadatas(metadata),
		chroma.WithTexts(text),
		chroma.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(embedding)),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

// Query returns message IDs near the query embedding, scoped to the user,
// along with cosine similarities (1 - distance).
func (c *Client) Query(ctx context.Context, userID string, embedding []float32, limit int) ([]string, []float64, error) {
	if len(embedding) == 0 {
		return nil, nil, fmt.Errorf("empty query embedding")
	}

	results, err := c.collection.Query(
		ctx,
		chroma.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(embedding)),
		chroma.WithNResults(limit),
		chroma.WithWhereQuery(chroma.EqString("user_id", userID)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query collection: %w", err)
	}

	if results == nil || results.CountGroups() == 0 {
		return []string{}, []float64{}, nil
	}

	idGroups := results.GetIDGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(idGroups) == 0 || len(idGroups[0]) == 0 {
		return []string{}, []float64{}, nil
	}

	ids := make([]string, 0, len(idGroups[0]))
	for _, id := range idGroups[0] {
		ids = append(ids, string(id))
	}

	similarities := make([]float64, 0, len(ids))
	if len(distanceGroups) > 0 {
		for _, d := range distanceGroups[0] {
			similarities = append(similarities, 1-float64(d))
		}
	}

	return ids, similarities, nil
}
