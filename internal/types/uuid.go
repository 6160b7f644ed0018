package types

import (
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/teris-io/shortid"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex chrg_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

var (
	sidGenerator *shortid.Shortid
	once         sync.Once
)

func initializeSID() {
	var err error
	sidGenerator, err = shortid.New(1, shortid.DefaultABC, 2342)
	if err != nil {
		panic("failed to initialize shortid generator: " + err.Error())
	}
}

// GenerateShortID returns a short unique id suitable for
// provider reference codes with tight length limits
func GenerateShortID() string {
	once.Do(initializeSID)
	id, err := sidGenerator.Generate()
	if err != nil {
		return GenerateUUID()[:10]
	}
	return id
}

const (
	UUID_PREFIX_RECURRENCE     = "rec"
	UUID_PREFIX_SALE           = "sale"
	UUID_PREFIX_BILLABLE_ITEM  = "bill"
	UUID_PREFIX_CHARGE         = "chrg"
	UUID_PREFIX_STATUS_HISTORY = "chist"
	UUID_PREFIX_LEDGER_TXN     = "ltxn"
	UUID_PREFIX_SALE_RECORD    = "srec"
	UUID_PREFIX_BANK_ACCOUNT   = "bank"
)
