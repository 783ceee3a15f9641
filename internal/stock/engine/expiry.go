package engine

import (
	"time"

	"github.com/Pepe2244/almoxarifado-digital/internal/stock/domain"
)

// neverExpires is the sentinel expiry for batches without a usable shelf
// life; it sorts after every real expiry date.
var neverExpires = time.Date(2999, time.December, 31, 0, 0, 0, 0, time.UTC)

// expiryOf computes the instant a batch expires. The base date is the
// manufacturing date when present, otherwise the acquisition date. The batch
// shelf life wins over the item default when positive; with no positive
// shelf life, or no usable base date, the batch never expires.
func expiryOf(batch domain.Batch, itemDefaultShelfLife int) time.Time {
	base := batch.AcquisitionDate
	if batch.ManufacturingDate != nil {
		base = *batch.ManufacturingDate
	}

	shelfLife := batch.ShelfLifeDays
	if shelfLife <= 0 {
		shelfLife = itemDefaultShelfLife
	}

	if shelfLife <= 0 || base.IsZero() {
		return neverExpires
	}

	return base.AddDate(0, 0, shelfLife)
}
