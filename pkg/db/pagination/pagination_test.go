package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	p := Page{}.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, defaultPageSize, p.PageSize)

	p = Page{Page: -3, PageSize: 9999}.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, maxPageSize, p.PageSize)
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Page{Page: 1, PageSize: 10}.Offset())
	assert.Equal(t, 40, Page{Page: 5, PageSize: 10}.Offset())
}

func TestBuildPageInfo(t *testing.T) {
	info := BuildPageInfo(45, Page{Page: 2, PageSize: 10})
	assert.Equal(t, int64(45), info.Total)
	assert.Equal(t, 2, info.Page)
	assert.Equal(t, 5, info.Pages)

	info = BuildPageInfo(0, Page{Page: 1, PageSize: 10})
	assert.Equal(t, 1, info.Pages)

	info = BuildPageInfo(30, Page{Page: 1, PageSize: 10})
	assert.Equal(t, 3, info.Pages)
}
