package normalize

import (
	"github.com/ethioguide/procedure-gateway/internal/core/domain"
)

// MapFeedbackItem normalizes one feedback record. Type values are folded onto
// the enum, status defaults to "new" and the counters to zero.
func MapFeedbackItem(raw any) domain.FeedbackItem {
	src, ok := asObject(Probe(raw))
	if !ok {
		src = map[string]any{}
	}

	item := domain.FeedbackItem{}
	item.ID, _ = pickString(src, "id", "_id", "ID", "feedbackId")
	item.Content, _ = pickString(src, "content", "Content")

	rawType, _ := pickString(src, "type", "Type")
	item.Type = domain.NormalizeFeedbackType(rawType)

	if status, ok := pickString(src, "status", "Status"); ok && status != "" {
		item.Status = status
	} else {
		item.Status = domain.FeedbackStatusNew
	}

	item.LikeCount, _ = pickInt(src, "likeCount", "like_count", "likes")
	item.DislikeCount, _ = pickInt(src, "dislikeCount", "dislike_count", "dislikes")
	item.ProcedureID, _ = pickString(src, "procedureID", "procedure_id", "ProcedureID", "procedureId")
	item.CreatedAt, _ = pickString(src, "createdAT", "createdAt", "created_at", "CreatedAt")
	item.UpdatedAt, _ = pickString(src, "updatedAT", "updatedAt", "updated_at", "UpdatedAt")
	item.UserID, _ = pickString(src, "userID", "user_id", "UserID", "userId")
	if tags, ok := pickStringSlice(src, "tags", "Tags"); ok {
		item.Tags = tags
	}
	item.AdminResponse, _ = pickString(src, "adminResponse", "admin_response", "AdminResponse")
	if viewCount, ok := pickInt(src, "viewCount", "view_count"); ok {
		item.ViewCount = &viewCount
	}
	return item
}

// MapFeedbackPage normalizes a feedback list response. The items may sit
// under feedbacks, under a container nested one level below feedbacks, or
// under the generic list envelope keys.
func MapFeedbackPage(raw any) domain.FeedbackPage {
	items, container := probeFeedbackItems(raw)

	feedbacks := make([]domain.FeedbackItem, 0, len(items))
	for _, item := range items {
		feedbacks = append(feedbacks, MapFeedbackItem(item))
	}

	pagination := ReconcilePagination(raw, container, len(items))
	return domain.FeedbackPage{
		Feedbacks: feedbacks,
		Page:      pagination.Page,
		Limit:     pagination.Limit,
		Total:     pagination.Total,
	}
}

// FeedbackPageHasExplicitTotal reports whether the list payload itself
// carried a total field. When it did not, MapFeedbackPage defaults the total
// to the observed item count, which is not a signal that the collection ends
// there; callers walking all pages must not stop on a defaulted total.
func FeedbackPageHasExplicitTotal(raw any) bool {
	_, container := probeFeedbackItems(raw)
	scope := newPaginationScope(raw, container)
	_, ok := scope.int(totalKeys...)
	return ok
}

func probeFeedbackItems(raw any) ([]any, map[string]any) {
	if arr, ok := raw.([]any); ok {
		return arr, nil
	}
	m, ok := asObject(raw)
	if !ok {
		return nil, nil
	}

	if arr, ok := m["feedbacks"].([]any); ok {
		return arr, nil
	}
	// Some backend versions nest the whole page one level down.
	if sub, ok := asObject(m["feedbacks"]); ok {
		for _, key := range []string{"feedbacks", "data", "items"} {
			if arr, ok := sub[key].([]any); ok {
				return arr, sub
			}
		}
		return nil, sub
	}
	return ProbeItems(raw), nil
}
