package mongostore

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hypergopher/downblog"
)

// filterDocument translates the predicates of a query. Post fields share their
// names with the document keys.
func filterDocument(q downblog.Query) bson.M {
	conditions := make([]bson.M, 0, 2)

	if q.HasFilter() {
		conditions = append(conditions, bson.M{q.Filter.Field: q.Filter.Value})
	}

	if q.HasSearch() {
		// Quoted and anchored, without options, so the match is a literal, case-sensitive prefix.
		conditions = append(conditions, bson.M{
			downblog.FieldText: primitive.Regex{Pattern: "^" + regexp.QuoteMeta(q.Search)},
		})
	}

	switch len(conditions) {
	case 0:
		return bson.M{}
	case 1:
		return conditions[0]
	default:
		return bson.M{"$and": conditions}
	}
}

// sortDocument returns the sort of a query. Every order ends with the post id.
func sortDocument(q downblog.Query) bson.D {
	if !q.HasSort() {
		return bson.D{
			{Key: downblog.FieldCreatedAt, Value: 1},
			{Key: downblog.FieldID, Value: 1},
		}
	}

	direction := 1
	if q.Sort.Order.IsDescending() {
		direction = -1
	}

	if q.Sort.Field == downblog.FieldID {
		return bson.D{{Key: downblog.FieldID, Value: direction}}
	}

	return bson.D{
		{Key: q.Sort.Field, Value: direction},
		{Key: downblog.FieldID, Value: 1},
	}
}

func findOptions(q downblog.Query) *options.FindOptions {
	opts := options.Find().SetSort(sortDocument(q))

	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	if q.Skip > 0 {
		opts.SetSkip(int64(q.Skip))
	}

	if q.OmitText {
		opts.SetProjection(bson.D{{Key: downblog.FieldText, Value: 0}})
	}

	return opts
}
