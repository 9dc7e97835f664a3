package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/snapbridge/internal/logfields"
	"git.home.luguber.info/inful/snapbridge/internal/snap"
)

// NATSStore implements Store on a JetStream key-value bucket.
type NATSStore struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
}

// NewNATSStore connects to url and opens (or creates) bucket.
func NewNATSStore(ctx context.Context, url, bucket string) (*NATSStore, error) {
	conn, err := nats.Connect(url, nats.Name("snapbridge-host"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	kv, err := js.KeyValue(ctx, bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		slog.Info("Creating NATS KV bucket", slog.String("bucket", bucket))
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "Snap state documents",
			History:     1,
		})
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open KV bucket %s: %w", bucket, err)
	}

	slog.Info("NATS state store ready", logfields.Backend("nats"), slog.String("bucket", bucket))
	return &NATSStore{conn: conn, kv: kv}, nil
}

// kvKey maps a snap ID onto the KV key alphabet; snap IDs contain ':' which
// KV keys do not allow.
func kvKey(snapID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(snapID))
}

func (n *NATSStore) Get(ctx context.Context, snapID string) (snap.Document, bool, error) {
	entry, err := n.kv.Get(ctx, kvKey(snapID))
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get document: %w", err)
	}

	doc, err := decode(entry.Value())
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (n *NATSStore) Put(ctx context.Context, snapID string, doc snap.Document) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	if _, err := n.kv.Put(ctx, kvKey(snapID), data); err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}

func (n *NATSStore) Delete(ctx context.Context, snapID string) error {
	err := n.kv.Delete(ctx, kvKey(snapID))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (n *NATSStore) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}
