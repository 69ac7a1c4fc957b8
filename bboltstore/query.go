package bboltstore

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/hypergopher/downblog"
)

// indexDocument is the bleve view of a post. Keys match the field mapping.
func indexDocument(post *downblog.Post) map[string]any {
	return map[string]any{
		downblog.FieldID:           post.ID,
		downblog.FieldTitle:        post.Title,
		downblog.FieldText:         post.Text,
		downblog.FieldAuthor:       post.Author,
		downblog.FieldSlug:         post.Slug,
		downblog.FieldCreatedAt:    post.CreatedAt,
		downblog.FieldLastModified: post.LastModified,
	}
}

// searchQuery translates the predicates of a query. An empty query matches every post.
func searchQuery(q downblog.Query) query.Query {
	queries := make([]query.Query, 0, 2)

	if q.HasFilter() {
		termQuery := bleve.NewTermQuery(q.Filter.Value)
		termQuery.SetField(q.Filter.Field)
		queries = append(queries, termQuery)
	}

	if q.HasSearch() {
		prefixQuery := bleve.NewPrefixQuery(q.Search)
		prefixQuery.SetField(downblog.FieldText)
		queries = append(queries, prefixQuery)
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}

	return bleve.NewConjunctionQuery(queries...)
}

// sortOrder returns the bleve sort for a query. Every order ends with the document id.
func sortOrder(q downblog.Query) []string {
	if !q.HasSort() {
		return []string{downblog.FieldCreatedAt, "_id"}
	}

	field := q.Sort.Field
	if q.Sort.Order.IsDescending() {
		field = "-" + field
	}

	return []string{field, "_id"}
}

// searchIDs returns the ids of the posts selected by a query, in order.
func (bbs *BBoltStore) searchIDs(ctx context.Context, q downblog.Query) ([]string, error) {
	docCount, err := bbs.bleveIndex.DocCount()
	if err != nil {
		return nil, fmt.Errorf("error counting documents: %w", err)
	}

	// bleve allocates for the requested size, so both bounds are capped at the index size.
	total := int(docCount)
	if q.Skip >= total {
		return []string{}, nil
	}

	size := q.Limit
	if size <= 0 || size > total {
		size = total
	}

	request := bleve.NewSearchRequestOptions(searchQuery(q), size, q.Skip, false)
	request.SortBy(sortOrder(q))

	result, err := bbs.bleveIndex.SearchInContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("error searching for posts: %w", err)
	}

	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}

	return ids, nil
}
