package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vrsandeep/filebox/internal/store"
	"github.com/vrsandeep/filebox/internal/testutil"
)

func TestPing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)
	assert.NoError(t, s.Ping())

	db.Close()
	assert.Error(t, s.Ping())
}
