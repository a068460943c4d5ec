package mongodb

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/rezkam/parish/internal/domain"
	"github.com/rezkam/parish/internal/listquery"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// matchNothing is a filter no document satisfies.
var matchNothing = bson.D{{Key: "$expr", Value: false}}

// Builder accumulates filter documents for one collection query.
// It implements listquery.Builder and mutates itself.
type Builder struct {
	col      *mongo.Collection
	columns  []string
	mode     listquery.Mode
	filters  []bson.D
	sort     bson.D
	skip     int64
	limit    int64
	hasRange bool
}

var _ listquery.Builder = (*Builder)(nil)

func newBuilder(col *mongo.Collection, columns string, mode listquery.Mode) *Builder {
	b := &Builder{col: col, mode: mode}
	for _, c := range strings.Split(columns, ",") {
		if c = strings.TrimSpace(c); c != "" && c != "*" {
			b.columns = append(b.columns, c)
		}
	}
	return b
}

func (b *Builder) add(f bson.D) listquery.Builder {
	b.filters = append(b.filters, f)
	return b
}

func (b *Builder) Match(m map[string]any) listquery.Builder {
	for _, col := range domain.SortedKeys(m) {
		b.Eq(col, m[col])
	}
	return b
}

func (b *Builder) Eq(column string, value any) listquery.Builder {
	return b.add(comparison(column, domain.OpEq, value))
}

func (b *Builder) Gte(column string, value any) listquery.Builder {
	return b.add(comparison(column, domain.OpGte, value))
}

func (b *Builder) Lte(column string, value any) listquery.Builder {
	return b.add(comparison(column, domain.OpLte, value))
}

func (b *Builder) ILike(column, pattern string) listquery.Builder {
	return b.add(comparison(column, domain.OpILike, pattern))
}

func (b *Builder) IsNull(column string, isNull bool) listquery.Builder {
	if isNull {
		return b.add(field(column, nil))
	}
	return b.add(field(column, bson.D{{Key: "$ne", Value: nil}}))
}

func (b *Builder) In(column string, values []any) listquery.Builder {
	return b.add(comparison(column, domain.OpIn, values))
}

func (b *Builder) Not(column string, op domain.Operator, value any) listquery.Builder {
	switch op {
	case domain.OpEq:
		return b.add(field(column, bson.D{{Key: "$ne", Value: value}}))
	case domain.OpNeq:
		return b.add(field(column, value))
	case domain.OpIs:
		v, _ := domain.IsOperand(value)
		return b.add(field(column, bson.D{{Key: "$ne", Value: v}}))
	case domain.OpIn:
		values, _ := domain.AsValues(value)
		if len(values) == 0 {
			return b
		}
		return b.add(field(column, bson.D{{Key: "$nin", Value: values}}))
	case domain.OpLike, domain.OpILike:
		pattern, _ := value.(string)
		return b.add(field(column, bson.D{{Key: "$not", Value: likeRegex(pattern, op == domain.OpILike)}}))
	case domain.OpGt, domain.OpGte, domain.OpLt, domain.OpLte:
		return b.add(field(column, bson.D{{Key: "$not", Value: bson.D{{Key: "$" + string(op), Value: value}}}}))
	default:
		return b
	}
}

func (b *Builder) Or(d *listquery.Disjunction) listquery.Builder {
	terms := d.Terms()
	switch len(terms) {
	case 0:
		return b
	case 1:
		return b.add(comparison(terms[0].Column, terms[0].Operator, terms[0].Value))
	}

	branches := make(bson.A, len(terms))
	for i, t := range terms {
		branches[i] = comparison(t.Column, t.Operator, t.Value)
	}
	return b.add(bson.D{{Key: "$or", Value: branches}})
}

func (b *Builder) Order(column string, ascending bool) listquery.Builder {
	dir := -1
	if ascending {
		dir = 1
	}
	b.sort = append(b.sort, bson.E{Key: column, Value: dir})
	return b
}

func (b *Builder) Range(from, to int) listquery.Builder {
	b.skip = int64(from)
	b.limit = int64(to - from + 1)
	b.hasRange = true
	return b
}

// Filter returns the query document. Constraints are combined with $and.
func (b *Builder) Filter() bson.D {
	switch len(b.filters) {
	case 0:
		return bson.D{}
	case 1:
		return b.filters[0]
	}
	conds := make(bson.A, len(b.filters))
	for i, f := range b.filters {
		conds[i] = f
	}
	return bson.D{{Key: "$and", Value: conds}}
}

// FindOptions returns sort, window and projection of a rows query.
// _id is excluded unless asked for.
func (b *Builder) FindOptions() *options.FindOptions {
	opts := options.Find()
	if len(b.sort) > 0 {
		opts.SetSort(b.sort)
	}
	if b.hasRange {
		opts.SetSkip(b.skip).SetLimit(b.limit)
	}

	projection := bson.D{}
	wantID := false
	for _, c := range b.columns {
		if c == "_id" {
			wantID = true
		}
		projection = append(projection, bson.E{Key: c, Value: 1})
	}
	if !wantID {
		projection = append(projection, bson.E{Key: "_id", Value: 0})
	}
	return opts.SetProjection(projection)
}

func (b *Builder) Execute(ctx context.Context) (listquery.Result, error) {
	filter := b.Filter()
	slog.DebugContext(ctx, "Executing list query", "collection", b.col.Name(), "mode", b.mode, "filter", filter)

	if b.mode == listquery.ModeCount {
		n, err := b.col.CountDocuments(ctx, filter)
		if err != nil {
			return listquery.Result{}, classify(err)
		}
		return listquery.Result{Count: n}, nil
	}

	cur, err := b.col.Find(ctx, filter, b.FindOptions())
	if err != nil {
		return listquery.Result{}, classify(err)
	}
	defer func() { _ = cur.Close(ctx) }()

	rows := []domain.Row{}
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return listquery.Result{}, err
		}
		row := make(domain.Row, len(doc))
		for k, v := range doc {
			row[k] = normalizeValue(v)
		}
		rows = append(rows, row)
	}
	if err := cur.Err(); err != nil {
		return listquery.Result{}, classify(err)
	}
	return listquery.Result{Rows: rows}, nil
}

func field(column string, cond any) bson.D {
	return bson.D{{Key: column, Value: cond}}
}

// comparison translates one operator into a filter document. A nil operand
// of eq matches null or missing fields.
func comparison(column string, op domain.Operator, value any) bson.D {
	switch op {
	case domain.OpEq:
		return field(column, value)
	case domain.OpNeq:
		return field(column, bson.D{{Key: "$ne", Value: value}})
	case domain.OpGt, domain.OpGte, domain.OpLt, domain.OpLte:
		return field(column, bson.D{{Key: "$" + string(op), Value: value}})
	case domain.OpLike, domain.OpILike:
		pattern, _ := value.(string)
		return field(column, likeRegex(pattern, op == domain.OpILike))
	case domain.OpIn:
		values, _ := domain.AsValues(value)
		if values == nil {
			values = []any{}
		}
		return field(column, bson.D{{Key: "$in", Value: values}})
	case domain.OpIs:
		v, _ := domain.IsOperand(value)
		return field(column, v)
	default:
		// Unknown operators match nothing.
		return matchNothing
	}
}

// likeRegex converts a LIKE pattern into an anchored regular expression.
// % matches any run, _ a single character and \ escapes the next one.
func likeRegex(pattern string, caseInsensitive bool) primitive.Regex {
	var sb strings.Builder
	sb.WriteByte('^')
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			sb.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			sb.WriteString(".*")
		case r == '_':
			sb.WriteByte('.')
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteByte('$')

	re := primitive.Regex{Pattern: sb.String()}
	if caseInsensitive {
		re.Options = "is"
	} else {
		re.Options = "s"
	}
	return re
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	case primitive.ObjectID:
		return t.Hex()
	case bson.M:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = normalizeValue(inner)
		}
		return m
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalizeValue(e.Value)
		}
		return m
	case bson.A:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = normalizeValue(inner)
		}
		return out
	default:
		return v
	}
}
