package lnaddy

import (
	"context"
	"fmt"

	"github.com/lightninglabs/lndclient"
	"github.com/lightningnetwork/lnd/lnrpc/invoicesrpc"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwire"
	log "github.com/sirupsen/logrus"
)

// Invoicer issues bolt11 invoices whose description hash commits to the
// given unhashed description bytes. Implementations hash the bytes with
// SHA256 themselves.
type Invoicer interface {
	CreateInvoice(ctx context.Context, wallet string, amountSat int64,
		memo string, unhashedDescription []byte,
		extra map[string]string) (lntypes.Hash, string, error)
}

// LndInvoicer issues invoices via a single lnd node.
type LndInvoicer struct {
	lnd lndclient.LightningClient
}

func NewLndInvoicer(lnd lndclient.LightningClient) *LndInvoicer {
	return &LndInvoicer{lnd: lnd}
}

// CreateInvoice adds an invoice to lnd for the given satoshi amount. The
// wallet id is carried in the extra tags only; a single lnd node backs all
// links.
func (i *LndInvoicer) CreateInvoice(ctx context.Context, wallet string,
	amountSat int64, memo string, unhashedDescription []byte,
	extra map[string]string) (lntypes.Hash, string, error) {

	if amountSat < 0 {
		return lntypes.Hash{}, "", fmt.Errorf("negative invoice "+
			"amount %d", amountSat)
	}

	descHash := MetadataHash(string(unhashedDescription))

	hash, pr, err := i.lnd.AddInvoice(ctx, &invoicesrpc.AddInvoiceData{
		Memo:            memo,
		Value:           lnwire.MilliSatoshi(amountSat * 1000),
		DescriptionHash: descHash[:],
	})
	if err != nil {
		return lntypes.Hash{}, "", fmt.Errorf("could not add "+
			"invoice: %w", err)
	}

	log.Debugf("[invoice] Added invoice %v for wallet %s (%d sat, %v)",
		hash, wallet, amountSat, extra)

	return hash, pr, nil
}
