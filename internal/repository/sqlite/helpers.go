package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"topomap/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// geoToNull splits an optional geo position into two nullable columns
func geoToNull(g *domain.GeoPosition) (lat, lng sql.NullFloat64) {
	if g == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: g.Lat, Valid: true}, sql.NullFloat64{Float64: g.Lng, Valid: true}
}

// nullToGeo rebuilds a geo position; both columns must be set
func nullToGeo(lat, lng sql.NullFloat64) *domain.GeoPosition {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	return &domain.GeoPosition{Lat: lat.Float64, Lng: lng.Float64}
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals a value to nullable JSON.
// nil pointers and empty port-status maps are stored as NULL.
func marshalToNull(v interface{}) (sql.NullString, error) {
	switch t := v.(type) {
	case nil:
		return sql.NullString{}, nil
	case map[string]domain.PortStatus:
		if len(t) == 0 {
			return sql.NullString{}, nil
		}
	case *domain.LinkMetrics:
		if t == nil {
			return sql.NullString{}, nil
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Schema Evolution Guide
// ============================================================================
//
// To add a new column to the nodes table:
// 1. Add field to nodeRow struct (below)
// 2. Update scanArgs() - APPEND to end to match column order
// 3. Update nodeColumns constant - APPEND to end
// 4. Update toDomain() to map new field to domain.Node
// 5. Update nodeInsertArgs() and the upsert statement
// 6. Add the column to the schema in sqlite.go migrate()
//
// CRITICAL: Column order must match between nodeColumns, scanArgs() and
// nodeInsertArgs(). Same pattern applies to links.

// ============================================================================
// Node Row Scanner
// ============================================================================

// nodeRow holds all columns from a node query for scanning
type nodeRow struct {
	ID             string
	Name           string
	Type           string
	Status         string
	X              float64
	Y              float64
	Lat            sql.NullFloat64
	Lng            sql.NullFloat64
	ParentID       sql.NullString
	Level          int
	MetadataJSON   sql.NullString
	MetricsJSON    sql.NullString
	PortStatusJSON sql.NullString
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match nodeColumns order exactly:
// id, name, type, status, x, y, lat, lng, parent_id, level,
// metadata, metrics, port_status, created_at, updated_at
func (r *nodeRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,             // 1
		&r.Name,           // 2
		&r.Type,           // 3
		&r.Status,         // 4
		&r.X,              // 5
		&r.Y,              // 6
		&r.Lat,            // 7
		&r.Lng,            // 8
		&r.ParentID,       // 9
		&r.Level,          // 10
		&r.MetadataJSON,   // 11
		&r.MetricsJSON,    // 12
		&r.PortStatusJSON, // 13
		&r.CreatedAt,      // 14
		&r.UpdatedAt,      // 15
	}
}

// toDomain converts the scanned row to a domain.Node
func (r *nodeRow) toDomain() (*domain.Node, error) {
	node := &domain.Node{
		ID:        r.ID,
		Name:      r.Name,
		Type:      domain.DeviceType(r.Type),
		Status:    domain.NodeStatus(r.Status),
		X:         r.X,
		Y:         r.Y,
		Geo:       nullToGeo(r.Lat, r.Lng),
		ParentID:  nullToString(r.ParentID),
		Level:     r.Level,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}

	// Default status if empty
	if node.Status == "" {
		node.Status = domain.NodeUnknown
	}

	// Unmarshal JSON fields
	if err := unmarshalJSONField(r.MetadataJSON, &node.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	if err := unmarshalJSONField(r.MetricsJSON, &node.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	if err := unmarshalJSONField(r.PortStatusJSON, &node.PortStatus); err != nil {
		return nil, fmt.Errorf("unmarshal port status: %w", err)
	}

	return node, nil
}

// nodeColumns returns the SELECT column list for node queries
const nodeColumns = `id, name, type, status, x, y, lat, lng, parent_id, level,
	metadata, metrics, port_status, created_at, updated_at`

// ============================================================================
// Link Row Scanner
// ============================================================================

// linkRow holds all columns from a link query for scanning
type linkRow struct {
	ID           string
	SourceNodeID string
	SourcePort   string
	TargetNodeID string
	TargetPort   string
	LinkType     string
	Status       string
	MetricsJSON  sql.NullString
	StyleJSON    sql.NullString
	CreatedAt    time.Time
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match linkColumns order exactly:
// id, source_node_id, source_port, target_node_id, target_port,
// link_type, status, metrics, style, created_at
func (r *linkRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,           // 1
		&r.SourceNodeID, // 2
		&r.SourcePort,   // 3
		&r.TargetNodeID, // 4
		&r.TargetPort,   // 5
		&r.LinkType,     // 6
		&r.Status,       // 7
		&r.MetricsJSON,  // 8
		&r.StyleJSON,    // 9
		&r.CreatedAt,    // 10
	}
}

// toDomain converts the scanned row to a domain.Link
func (r *linkRow) toDomain() (*domain.Link, error) {
	link := &domain.Link{
		ID:           r.ID,
		SourceNodeID: r.SourceNodeID,
		SourcePort:   r.SourcePort,
		TargetNodeID: r.TargetNodeID,
		TargetPort:   r.TargetPort,
		LinkType:     domain.LinkType(r.LinkType),
		Status:       domain.LinkStatus(r.Status),
		CreatedAt:    r.CreatedAt,
	}

	if r.MetricsJSON.Valid && r.MetricsJSON.String != "" {
		link.Metrics = &domain.LinkMetrics{}
		if err := json.Unmarshal([]byte(r.MetricsJSON.String), link.Metrics); err != nil {
			return nil, fmt.Errorf("unmarshal metrics: %w", err)
		}
	}
	if err := unmarshalJSONField(r.StyleJSON, &link.Style); err != nil {
		return nil, fmt.Errorf("unmarshal style: %w", err)
	}
	if link.Style == (domain.LinkStyle{}) {
		link.Style = domain.DefaultLinkStyle(link.LinkType)
	}

	return link, nil
}

// linkColumns returns the SELECT column list for link queries
const linkColumns = `id, source_node_id, source_port, target_node_id, target_port,
	link_type, status, metrics, style, created_at`

// ============================================================================
// Write Helpers
// ============================================================================

// nodeInsertArgs prepares arguments for node UPSERT, in nodeColumns order
func nodeInsertArgs(node *domain.Node) ([]interface{}, error) {
	metadataJSON, err := marshalToNull(node.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	metricsJSON, err := marshalToNull(node.Metrics)
	if err != nil {
		return nil, fmt.Errorf("marshal metrics: %w", err)
	}
	portStatusJSON, err := marshalToNull(node.PortStatus)
	if err != nil {
		return nil, fmt.Errorf("marshal port status: %w", err)
	}
	lat, lng := geoToNull(node.Geo)

	return []interface{}{
		node.ID,
		node.Name,
		string(node.Type),
		string(node.Status),
		node.X,
		node.Y,
		lat,
		lng,
		stringToNull(node.ParentID),
		node.Level,
		metadataJSON,
		metricsJSON,
		portStatusJSON,
		node.CreatedAt,
		node.UpdatedAt,
	}, nil
}

// linkInsertArgs prepares arguments for link UPSERT, in linkColumns order
func linkInsertArgs(link *domain.Link) ([]interface{}, error) {
	metricsJSON, err := marshalToNull(link.Metrics)
	if err != nil {
		return nil, fmt.Errorf("marshal metrics: %w", err)
	}
	styleJSON, err := marshalToNull(link.Style)
	if err != nil {
		return nil, fmt.Errorf("marshal style: %w", err)
	}

	return []interface{}{
		link.ID,
		link.SourceNodeID,
		link.SourcePort,
		link.TargetNodeID,
		link.TargetPort,
		string(link.LinkType),
		string(link.Status),
		metricsJSON,
		styleJSON,
		link.CreatedAt,
	}, nil
}
