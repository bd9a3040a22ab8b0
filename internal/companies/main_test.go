package companies_test

import (
	"os"
	"testing"

	"github.com/octane-tech/nfc-tracker/internal/platform/db/dbtest"
)

func TestMain(m *testing.M) {
	os.Exit(dbtest.Run(m))
}
