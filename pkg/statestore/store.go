// Package statestore journals routes that srctl has applied, in Redis.
// The journal is not the reconciliation source of truth — observed dataplane
// state is — but it gives operators a record of what srctl installed, where,
// and from which route spec, surviving across invocations.
package statestore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jalapeno-sdn/srctl/pkg/route"
)

// routesKey is the Redis hash holding one field per journaled route.
const routesKey = "srctl|routes"

// Options selects the journal Redis instance. When SSHHost is set the
// connection is tunneled, for journals living on a remote router whose
// Redis is not exposed.
type Options struct {
	Addr    string // host:port of the Redis instance
	DB      int
	SSHHost string // optional: tunnel via SSH to reach Addr on that host
	SSHUser string
	SSHPass string
}

// Record is one journaled route.
type Record struct {
	Platform    string   `json:"platform"`
	Table       uint32   `json:"table_id"`
	Family      string   `json:"family"`
	Prefix      string   `json:"prefix"`
	Interface   string   `json:"outbound_interface,omitempty"`
	BSID        string   `json:"bsid,omitempty"`
	SegmentList []string `json:"segment_list,omitempty"`
	RouteName   string   `json:"route_name,omitempty"`
	AppliedAt   string   `json:"applied_at"`
}

// Store is a Redis-backed route journal.
type Store struct {
	client *redis.Client
	tunnel *SSHTunnel // nil for direct connections
}

// Open connects to the journal Redis and verifies it responds.
func Open(opts Options) (*Store, error) {
	addr := opts.Addr
	var tunnel *SSHTunnel
	if opts.SSHHost != "" {
		var err error
		tunnel, err = NewSSHTunnel(opts.SSHHost, opts.SSHUser, opts.SSHPass, addr)
		if err != nil {
			return nil, err
		}
		addr = tunnel.LocalAddr()
	}

	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		if tunnel != nil {
			tunnel.Close()
		}
		return nil, fmt.Errorf("connecting to state store at %s: %w", opts.Addr, err)
	}
	return &Store{client: client, tunnel: tunnel}, nil
}

func fieldKey(k route.Key) string {
	return fmt.Sprintf("%s|%d|%s|%s", k.Platform, k.Table, k.Family, k.Prefix)
}

// RecordApplied journals one installed route.
func (s *Store) RecordApplied(ctx context.Context, r route.ConcreteRoute) error {
	rec := Record{
		Platform:    string(r.Platform),
		Table:       r.Table,
		Family:      string(r.Family),
		Prefix:      r.Prefix,
		Interface:   r.Egress.Interface,
		BSID:        r.Egress.BSID,
		SegmentList: r.Egress.SegmentList,
		RouteName:   r.Source,
		AppliedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, routesKey, fieldKey(r.Key()), string(data)).Err()
}

// RecordRemoved drops a route from the journal.
func (s *Store) RecordRemoved(ctx context.Context, k route.Key) error {
	return s.client.HDel(ctx, routesKey, fieldKey(k)).Err()
}

// List returns all journaled routes, ordered by (platform, table, prefix).
func (s *Store) List(ctx context.Context) ([]Record, error) {
	fields, err := s.client.HGetAll(ctx, routesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("reading state store: %w", err)
	}
	records := make([]Record, 0, len(fields))
	for _, raw := range fields {
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue // tolerate foreign entries in the hash
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Platform != records[j].Platform {
			return records[i].Platform < records[j].Platform
		}
		if records[i].Table != records[j].Table {
			return records[i].Table < records[j].Table
		}
		return records[i].Prefix < records[j].Prefix
	})
	return records, nil
}

// Close releases the Redis connection and any SSH tunnel.
func (s *Store) Close() error {
	err := s.client.Close()
	if s.tunnel != nil {
		if terr := s.tunnel.Close(); err == nil {
			err = terr
		}
	}
	return err
}
