package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/upb/lms-backend/internal/observability"
	"github.com/upb/lms-backend/models"
	"go.uber.org/zap"
)

// Builder assembles one audit event. Setters only record state; nothing is
// written until Commit.
type Builder struct {
	svc *Service

	logName     string
	description string
	event       string
	subjectType *string
	subjectID   *string
	causer      *models.Causer
	properties  map[string]any
	err         error
}

// LogName sets the log channel
func (b *Builder) LogName(name string) *Builder {
	b.logName = name
	return b
}

// Description sets the human readable description
func (b *Builder) Description(description string) *Builder {
	b.description = description
	return b
}

// Event sets the event kind
func (b *Builder) Event(kind string) *Builder {
	b.event = kind
	return b
}

// Subject sets the entity the event is about. An entity without an
// identifier leaves the subject unset.
func (b *Builder) Subject(obj any) *Builder {
	b.subjectType, b.subjectID = nil, nil
	if obj == nil {
		return b
	}
	id, ok := b.svc.extractor.IdentifierOf(obj)
	if !ok {
		b.svc.logger.Debug("audit subject has no identifier",
			zap.String("subject_type", b.svc.extractor.TypeName(obj)))
		return b
	}
	b.subjectType = models.StringPtr(b.svc.extractor.TypeName(obj))
	b.subjectID = models.StringPtr(fmt.Sprint(id))
	return b
}

// CausedBy sets the causer explicitly. It accepts a models.Causer, a
// *models.Causer or any entity with an identifier.
func (b *Builder) CausedBy(actor any) *Builder {
	switch a := actor.(type) {
	case nil:
		b.causer = nil
	case models.Causer:
		b.causer = &a
	case *models.Causer:
		if a == nil {
			b.causer = nil
			break
		}
		c := *a
		b.causer = &c
	default:
		id, ok := b.svc.extractor.IdentifierOf(actor)
		if !ok {
			b.causer = nil
			break
		}
		b.causer = &models.Causer{Type: b.svc.extractor.TypeName(actor), ID: fmt.Sprint(id)}
	}
	return b
}

// Properties replaces the property bag with the JSON form of obj.
// Values that do not encode to a JSON object are stored under "value".
// Only the last call counts, including its encoding error.
func (b *Builder) Properties(obj any) *Builder {
	data, err := json.Marshal(obj)
	if err != nil {
		b.err = fmt.Errorf("failed to encode audit properties: %w", err)
		return b
	}

	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		b.err = fmt.Errorf("failed to decode audit properties: %w", err)
		return b
	}

	switch d := decoded.(type) {
	case map[string]any:
		b.properties = d
	case nil:
		b.properties = map[string]any{}
	default:
		b.properties = map[string]any{"value": d}
	}
	b.err = nil
	return b
}

// Property adds one key to the property bag
func (b *Builder) Property(key string, value any) *Builder {
	if b.properties == nil {
		b.properties = map[string]any{}
	}
	b.properties[key] = value
	return b
}

// Build resolves defaults and returns the event without storing it.
// The causer is resolved from ctx when none was set, and the active batch
// id is stamped.
func (b *Builder) Build(ctx context.Context) (*models.AuditEvent, error) {
	if b.err != nil {
		return nil, b.err
	}

	logName := b.logName
	if logName == "" {
		logName = b.event
	}
	if logName == "" {
		logName = models.DefaultLogName
	}
	description := b.description
	if description == "" {
		description = logName
	}

	event := &models.AuditEvent{
		LogName:     logName,
		Description: description,
		SubjectType: b.subjectType,
		SubjectID:   b.subjectID,
		Event:       b.event,
		Properties:  b.svc.normalize(b.properties),
	}

	causer := b.causer
	if causer == nil {
		causer = b.svc.currentCauser(ctx)
	}
	if causer != nil {
		event.CauserType = models.StringPtr(causer.Type)
		event.CauserID = models.StringPtr(causer.ID)
	}

	if batchID, ok := BatchIDFromContext(ctx); ok {
		event.BatchUUID = models.StringPtr(batchID)
	}
	return event, nil
}

// Commit builds and stores the event. It returns the stored event, or nil
// when anything failed; failures are logged and never returned.
func (b *Builder) Commit(ctx context.Context) *models.AuditEvent {
	event, err := b.Build(ctx)
	if err != nil {
		b.svc.logger.Error("failed to build audit event",
			zap.Error(err),
			zap.String("log_name", b.logName),
			zap.String("event", b.event))
		b.svc.metrics.IncDropped(observability.ReasonBuildError)
		return nil
	}
	return b.svc.Append(ctx, event)
}
