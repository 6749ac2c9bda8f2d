package normalize

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/ethioguide/procedure-gateway/internal/core/domain"
)

// Namespace for synthetic procedure ids. Hashing the payload instead of
// generating a random id keeps the id stable across fetches of the same
// unresolvable resource, so cache and dedup keys keep working.
var syntheticIDNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// MapProcedure turns a decoded upstream payload into the canonical record.
// It never fails: fields that cannot be resolved stay absent, except id and
// title which get documented defaults.
func MapProcedure(raw any) domain.Procedure {
	src, ok := asObject(Probe(raw))
	if !ok {
		src = map[string]any{}
	}
	content, _ := contentBlock(src)

	proc := domain.Procedure{
		ID:    resolveID(src, content),
		Title: resolveTitle(src, content),
	}

	proc.Name, _ = scopedString(src, content, "name", "Name")
	proc.Summary, _ = scopedString(src, content, "summary", "Summary")

	if rawSteps, ok := scopedField(src, content, "steps", "Steps"); ok {
		proc.Steps = reconcileSequence(rawSteps, mapStep)
	}
	if rawDocs, ok := scopedField(src, content, "documentsRequired", "documents_required", "documents", "Documents"); ok {
		proc.DocumentsRequired = reconcileSequence(rawDocs, mapDocumentRequirement)
	}
	if rawFees, ok := scopedField(src, content, "fees", "Fees"); ok {
		proc.Fees = reconcileSequence(rawFees, mapFee)
	}
	if rawTime, ok := scopedField(src, content, "processingTime", "processing_time", "ProcessingTime"); ok {
		proc.ProcessingTime = mapProcessingTime(rawTime)
	}

	if tags, ok := pickStringSlice(src, "tags", "Tags"); ok {
		proc.Tags = tags
	} else if content != nil {
		if tags, ok := pickStringSlice(content, "tags", "Tags"); ok {
			proc.Tags = tags
		}
	}

	if verified, ok := pickBool(src, "verified", "Verified", "isVerified"); ok {
		proc.Verified = &verified
	}
	proc.UpdatedAt, _ = scopedString(src, content, "updatedAt", "updated_at", "UpdatedAt")
	if views, ok := pickInt(src, "views", "Views", "viewCount"); ok {
		proc.Views = &views
	}
	if likes, ok := pickInt(src, "likes", "Likes", "likeCount"); ok {
		proc.Likes = &likes
	}

	return proc
}

// MapProcedureList normalizes a list response: items through MapProcedure,
// paging through the pagination reconciler.
func MapProcedureList(raw any) domain.ProcedureList {
	items := ProbeItems(raw)
	procedures := make([]domain.Procedure, 0, len(items))
	for _, item := range items {
		procedures = append(procedures, MapProcedure(item))
	}
	return domain.ProcedureList{
		Procedures: procedures,
		Pagination: ReconcilePagination(raw, nil, len(items)),
	}
}

func resolveID(src, content map[string]any) string {
	if id, ok := pickString(src, "id", "_id", "procedureId", "slug", "code"); ok && id != "" {
		return id
	}
	if content != nil {
		if id, ok := pickString(content, "id", "_id", "procedureId", "slug", "code"); ok && id != "" {
			return id
		}
	}
	return syntheticID(src)
}

func syntheticID(src map[string]any) string {
	payload, err := json.Marshal(src)
	if err != nil {
		payload = nil
	}
	return uuid.NewSHA1(syntheticIDNamespace, payload).String()
}

// resolveTitle prefers an explicit title, then the nested content block's
// title (including the legacy Result spelling), then the name, then the
// display placeholder.
func resolveTitle(src, content map[string]any) string {
	if title, ok := pickString(src, "title", "Title"); ok && title != "" {
		return title
	}
	if content != nil {
		if title, ok := pickString(content, "title", "Title", "Result"); ok && title != "" {
			return title
		}
	}
	if name, ok := pickString(src, "name", "Name"); ok && name != "" {
		return name
	}
	if content != nil {
		if name, ok := pickString(content, "name", "Name"); ok && name != "" {
			return name
		}
	}
	return domain.UntitledProcedure
}

func scopedString(src, content map[string]any, keys ...string) (string, bool) {
	if s, ok := pickString(src, keys...); ok {
		return s, true
	}
	if content != nil {
		return pickString(content, keys...)
	}
	return "", false
}

func scopedField(src, content map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := src[key]; ok && v != nil {
			return v, true
		}
	}
	if content != nil {
		for _, key := range keys {
			if v, ok := content[key]; ok && v != nil {
				return v, true
			}
		}
	}
	return nil, false
}

func mapStep(order int, v any) domain.Step {
	switch t := v.(type) {
	case string:
		return domain.Step{Order: order, Text: t}
	case map[string]any:
		step := domain.Step{Order: order}
		if explicit, ok := pickInt(t, "order", "Order", "position"); ok {
			step.Order = explicit
		}
		step.Text, _ = pickString(t, "text", "Text")
		step.Title, _ = pickString(t, "title", "Title")
		step.Description, _ = pickString(t, "description", "Description")
		step.EstimatedTime, _ = pickString(t, "estimatedTime", "estimated_time")
		step.Time, _ = pickString(t, "time", "Time")
		if step.Text == "" && step.Description != "" {
			step.Text = step.Description
		}
		return step
	default:
		return domain.Step{Order: order, Text: stringifyValue(v)}
	}
}

func mapDocumentRequirement(_ int, v any) domain.DocumentRequirement {
	switch t := v.(type) {
	case string:
		return domain.DocumentRequirement{Name: t}
	case map[string]any:
		doc := domain.DocumentRequirement{}
		doc.Name, _ = pickString(t, "name", "Name", "title", "document")
		if url, ok := pickString(t, "templateUrl", "template_url", "TemplateURL", "url"); ok {
			doc.TemplateURL = &url
		}
		return doc
	default:
		return domain.DocumentRequirement{Name: stringifyValue(v)}
	}
}

func mapFee(_ int, v any) domain.Fee {
	switch t := v.(type) {
	case string:
		return domain.Fee{Label: t}
	case map[string]any:
		fee := domain.Fee{}
		fee.Amount, _ = pickNumber(t, "amount", "Amount", "fee", "price")
		fee.Currency, _ = pickString(t, "currency", "Currency")
		fee.Label, _ = pickString(t, "label", "Label", "name", "description")
		return fee
	default:
		return domain.Fee{Label: stringifyValue(v)}
	}
}

func mapProcessingTime(v any) *domain.ProcessingTime {
	m, ok := asObject(v)
	if !ok {
		return nil
	}
	pt := &domain.ProcessingTime{}
	if minDays, ok := pickInt(m, "minDays", "min_days", "MinDays"); ok {
		pt.MinDays = &minDays
	}
	if maxDays, ok := pickInt(m, "maxDays", "max_days", "MaxDays"); ok {
		pt.MaxDays = &maxDays
	}
	if pt.MinDays == nil && pt.MaxDays == nil {
		return nil
	}
	return pt
}
