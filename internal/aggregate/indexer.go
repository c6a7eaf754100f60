// internal/aggregate/indexer.go
package aggregate

import (
	"bytes"
	"context"
	"encoding/json"

	"notification-pipeline/internal/common/database"
	"notification-pipeline/internal/common/logger"
	"notification-pipeline/internal/models"
)

// LogIndexer mirrors delivery log rows into Elasticsearch so operators can
// search the delivery trail without hitting Postgres. A nil indexer is valid
// and does nothing; the worker uses that when Elasticsearch is disabled.
type LogIndexer struct {
	es     *database.ElasticsearchClient
	index  string
	logger logger.Logger
}

func NewLogIndexer(es *database.ElasticsearchClient, index string, log logger.Logger) *LogIndexer {
	return &LogIndexer{
		es:     es,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "log-indexer"}),
	}
}

// Index writes one delivery log entry, keyed by its row ID so redeliveries
// overwrite rather than duplicate.
func (ix *LogIndexer) Index(ctx context.Context, entry *models.DeliveryLog) {
	if ix == nil || ix.es == nil {
		return
	}

	doc, err := json.Marshal(entry)
	if err != nil {
		ix.logger.Warn("delivery log marshal failed", map[string]interface{}{
			"notificationId": entry.NotificationID,
			"error":          err,
		})
		return
	}

	res, err := ix.es.Client.Index(
		ix.index,
		bytes.NewReader(doc),
		ix.es.Client.Index.WithDocumentID(entry.ID),
		ix.es.Client.Index.WithContext(ctx),
	)
	if err != nil {
		ix.logger.Warn("delivery log index failed", map[string]interface{}{
			"notificationId": entry.NotificationID,
			"error":          err,
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		ix.logger.Warn("delivery log index rejected", map[string]interface{}{
			"notificationId": entry.NotificationID,
			"status":         res.Status(),
		})
	}
}
