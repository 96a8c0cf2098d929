package collection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/pkg/collection"
)

type item struct {
	Name string
	Age  int
}

var items = []item{{"Ana", 30}, {"Luis", 17}, {"Eva", 30}, {"Sol", 25}}

func TestMap(t *testing.T) {
	names := collection.Map(items, func(i item) string { return i.Name })
	assert.Equal(t, []string{"Ana", "Luis", "Eva", "Sol"}, names)

	assert.Empty(t, collection.Map([]item{}, func(i item) string { return i.Name }))
}

func TestSum(t *testing.T) {
	total := collection.Sum(items, func(i item) float64 { return float64(i.Age) })
	assert.Equal(t, 102.0, total)
	assert.Zero(t, collection.Sum(nil, func(i item) float64 { return 1 }))
}

func TestCountByAndSortedKeys(t *testing.T) {
	counts := collection.CountBy(items, func(i item) int { return i.Age })
	assert.Equal(t, map[int]int64{30: 2, 17: 1, 25: 1}, counts)
	assert.Equal(t, []int{17, 25, 30}, collection.SortedKeys(counts))
}

func TestTake(t *testing.T) {
	assert.Equal(t, "Ana", collection.Take(items, 2)[0].Name)
	assert.Len(t, collection.Take(items, 2), 2)
	assert.Len(t, collection.Take(items, 10), 4)
	assert.Empty(t, collection.Take(items, -1))
}
