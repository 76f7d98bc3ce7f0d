package items

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lostfound-cloud/matcher/internal/domain"
)

// metadataFields are the well-known record fields folded into the metadata
// snapshot alongside any free-form "metadata" extensions.
var metadataFields = []string{"location", "date", "category", "contactInfo"}

// itemFromJSON normalizes a raw store record into a domain Item.
// Records may spell the image reference as "imageUrl" or "image_url".
func itemFromJSON(key string, data []byte) (domain.Item, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Item{}, fmt.Errorf("unmarshal item: %w", err)
	}

	id := stringField(doc, "id")
	if id == "" {
		// Fall back to the key suffix: lostfound:items:<collection>:<id>.
		if idx := strings.LastIndexByte(key, ':'); idx >= 0 {
			id = key[idx+1:]
		}
	}
	if id == "" {
		return domain.Item{}, fmt.Errorf("item record has no id (key %q)", key)
	}

	imageURL := stringField(doc, "imageUrl")
	if imageURL == "" {
		imageURL = stringField(doc, "image_url")
	}

	metadata := make(map[string]any, len(metadataFields))
	for _, f := range metadataFields {
		metadata[f] = doc[f]
	}
	if extra, ok := doc["metadata"].(map[string]any); ok {
		for k, v := range extra {
			metadata[k] = v
		}
	}

	return domain.Item{
		ID:          id,
		Description: stringField(doc, "description"),
		ImageURL:    imageURL,
		Metadata:    metadata,
	}, nil
}

func stringField(doc map[string]any, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}
