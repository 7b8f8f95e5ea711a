package postgres

import (
	"testing"

	"github.com/mpapenbr/racedash/testsupport/storetest"
	"github.com/mpapenbr/racedash/testsupport/testdb"
)

func TestStore(t *testing.T) {
	pool := testdb.InitTestDb(t)
	s := New(pool, "test")
	defer s.Close()
	storetest.Run(t, s)
}

func TestStore_sources(t *testing.T) {
	pool := testdb.InitTestDb(t)
	storetest.RunSources(t, New(pool, "archive"), New(pool, "openf1"))
}
