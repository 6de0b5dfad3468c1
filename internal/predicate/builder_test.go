package predicate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataprovider/internal/contract"
	"github.com/roach88/dataprovider/internal/record"
	"github.com/roach88/dataprovider/internal/route"
	"github.com/roach88/dataprovider/internal/store"
)

func openDB(t *testing.T) Handle {
	t.Helper()
	s, err := store.OpenMemory(store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s.Writable()
}

func seedImages(t *testing.T, h Handle, keys ...string) {
	t.Helper()
	for i, k := range keys {
		_, err := Insert(context.Background(), h, "images", record.New(
			record.P("image_id", record.String(k)),
			record.P("title", record.String("title-"+k)),
			record.P("width", record.Int(int64(100*(i+1)))),
		))
		require.NoError(t, err)
	}
}

func readAll(t *testing.T, b *Builder, h Handle, opts ReadOptions) []record.Record {
	t.Helper()
	cur, err := b.Read(context.Background(), h, opts)
	require.NoError(t, err)
	rows, err := cur.All()
	require.NoError(t, err)
	return rows
}

func TestRead_WholeTable(t *testing.T) {
	h := openDB(t)
	seedImages(t, h, "a", "b", "c")

	rows := readAll(t, New().Table("images"), h, ReadOptions{Columns: []string{"image_id"}})

	require.Len(t, rows, 3)
	assert.Equal(t, record.String("a"), rows[0]["image_id"])
	assert.Equal(t, record.String("c"), rows[2]["image_id"])
}

func TestRead_ScopeCannotBeWidened(t *testing.T) {
	h := openDB(t)
	seedImages(t, h, "a", "b", "c")

	for _, caller := range []string{"1 = 1", "1 = 1 OR 1 = 1", "image_id = 'c' OR 1"} {
		t.Run(caller, func(t *testing.T) {
			b := New().Table("images").
				Where("image_id = ?", record.String("b")).
				Where(caller)

			rows := readAll(t, b, h, ReadOptions{})
			require.Len(t, rows, 1)
			assert.Equal(t, record.String("b"), rows[0]["image_id"])
		})
	}
}

func TestRead_CallerNarrowsScope(t *testing.T) {
	h := openDB(t)
	seedImages(t, h, "a", "b", "c")

	b := New().Table("images").Where("width >= ?", record.Int(200))
	rows := readAll(t, b, h, ReadOptions{Columns: []string{"image_id"}, OrderBy: "width DESC"})

	require.Len(t, rows, 2)
	assert.Equal(t, record.String("c"), rows[0]["image_id"])
	assert.Equal(t, record.String("b"), rows[1]["image_id"])
}

func TestRead_Distinct(t *testing.T) {
	h := openDB(t)
	ctx := context.Background()
	for _, q := range []string{"cats", "dogs", "cats"} {
		_, err := Insert(ctx, h, "history", record.New(record.P("query", record.String(q))))
		require.NoError(t, err)
	}

	rows := readAll(t, New().Table("history"), h, ReadOptions{Columns: []string{"query"}, Distinct: true})
	assert.Equal(t, []record.Record{
		{"query": record.String("cats")},
		{"query": record.String("dogs")},
	}, rows)

	rows = readAll(t, New().Table("history"), h, ReadOptions{Columns: []string{"query"}})
	assert.Len(t, rows, 3)
}

func TestWhere_MalformedRecordedUntilTerminal(t *testing.T) {
	h := openDB(t)

	b := New().Table("images").
		Where("title = ?").
		Where("width = ?", record.Int(1))

	require.Error(t, b.Err())
	assert.Equal(t, 0, b.Len())

	_, err := b.Delete(context.Background(), h)
	assert.True(t, contract.IsMalformedPredicate(err), "got %v", err)
}

func TestWhere_BlankIgnored(t *testing.T) {
	b := New().Table("images").Where("").Where("  ")
	assert.NoError(t, b.Err())
	assert.Equal(t, 0, b.Len())
}

func TestRead_MalformedSort(t *testing.T) {
	h := openDB(t)
	_, err := New().Table("images").Read(context.Background(), h, ReadOptions{OrderBy: "title; DROP"})
	assert.True(t, contract.IsMalformedPredicate(err))

	_, err = New().Table("images").Read(context.Background(), h, ReadOptions{Columns: []string{"*"}})
	assert.True(t, contract.IsMalformedPredicate(err))
}

func TestTerminal_OnlyOnce(t *testing.T) {
	h := openDB(t)
	b := New().Table("images")

	_, err := b.Delete(context.Background(), h)
	require.NoError(t, err)

	_, err = b.Delete(context.Background(), h)
	assert.ErrorIs(t, err, ErrConsumed)
}

func TestTerminal_NoTable(t *testing.T) {
	_, err := New().Delete(context.Background(), openDB(t))
	assert.Error(t, err)
}

func TestUpdate(t *testing.T) {
	h := openDB(t)
	ctx := context.Background()
	seedImages(t, h, "a", "b")

	n, err := New().Table("images").
		Where("image_id = ?", record.String("a")).
		Update(ctx, h, record.New(record.P("title", record.String("renamed"))))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = New().Table("images").
		Where("image_id = ?", record.String("missing")).
		Update(ctx, h, record.New(record.P("title", record.String("x"))))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	rows := readAll(t, New().Table("images").Where("image_id = ?", record.String("a")), h, ReadOptions{Columns: []string{"title"}})
	require.Len(t, rows, 1)
	assert.Equal(t, record.String("renamed"), rows[0]["title"])
}

func TestUpdate_EmptyValues(t *testing.T) {
	_, err := New().Table("images").Update(context.Background(), openDB(t), record.Record{})
	assert.Equal(t, contract.ErrCodeInvalidValues, contract.CodeOf(err))
}

func TestDelete(t *testing.T) {
	h := openDB(t)
	ctx := context.Background()
	seedImages(t, h, "a", "b", "c")

	n, err := New().Table("images").Where("width < ?", record.Int(250)).Delete(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = New().Table("images").Where("image_id = ?", record.String("a")).Delete(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	rows := readAll(t, New().Table("images"), h, ReadOptions{})
	assert.Len(t, rows, 1)
}

func TestInsert(t *testing.T) {
	h := openDB(t)
	ctx := context.Background()

	id, err := Insert(ctx, h, "history", record.New(
		record.P("image_id", record.String("a")),
		record.P("viewed_at", record.Int(42)),
	))
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	id, err = Insert(ctx, h, "history", record.Record{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	_, err = Insert(ctx, h, "images", record.New(record.P("image_id", record.String("k"))))
	require.NoError(t, err)
	_, err = Insert(ctx, h, "images", record.New(record.P("image_id", record.String("k"))))
	require.Error(t, err)
	assert.True(t, store.IsConstraintViolation(err), "driver error must stay inspectable")

	_, err = Insert(ctx, h, "images", record.New(record.P("bad column", record.String("k"))))
	assert.Equal(t, contract.ErrCodeInvalidValues, contract.CodeOf(err))
}

func TestCursor(t *testing.T) {
	h := openDB(t)
	ctx := context.Background()
	_, err := Insert(ctx, h, "history", record.New(
		record.P("query", record.String("q")),
		record.P("viewed_at", record.Bool(true)),
	))
	require.NoError(t, err)

	addr := route.MustParse("content://a/history")
	cur, err := New().Table("history").Read(ctx, h, ReadOptions{
		Columns:             []string{"_id", "image_id", "viewed_at"},
		NotificationAddress: addr,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"_id", "image_id", "viewed_at"}, cur.Columns())
	assert.True(t, cur.NotificationAddress().Equal(addr))

	require.True(t, cur.Next())
	assert.Equal(t, record.Record{
		"_id":       record.Int(1),
		"image_id":  record.Null{},
		"viewed_at": record.Int(1),
	}, cur.Record())

	assert.False(t, cur.Next())
	assert.NoError(t, cur.Err())
	assert.NoError(t, cur.Close())
	assert.NoError(t, cur.Close())
}

func TestCursor_OnCloseRunsOnce(t *testing.T) {
	h := openDB(t)
	ctx := context.Background()
	seedImages(t, h, "a", "b")

	closed := 0
	cur, err := New().Table("images").Read(ctx, h, ReadOptions{OnClose: func() { closed++ }})
	require.NoError(t, err)

	require.True(t, cur.Next())
	assert.Equal(t, 0, closed)
	require.True(t, cur.Next())
	assert.False(t, cur.Next(), "exhaustion closes the cursor")
	assert.Equal(t, 1, closed)

	require.NoError(t, cur.Close())
	assert.Equal(t, 1, closed)
}
