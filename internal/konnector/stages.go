package konnector

import (
	"context"
	"fmt"

	"github.com/SomeAverageDev/konnectors/internal/dedup"
	"github.com/SomeAverageDev/konnectors/internal/files"
	"github.com/SomeAverageDev/konnectors/internal/logging"
	"github.com/SomeAverageDev/konnectors/internal/models"
	"github.com/SomeAverageDev/konnectors/internal/pipeline"
	"github.com/SomeAverageDev/konnectors/internal/runerror"
)

func (k *Konnector) login(ctx context.Context, rc *pipeline.RunContext) pipeline.Result {
	if err := rc.Credentials.Validate(k.def.Vendor); err != nil {
		return pipeline.Failure(err)
	}
	session, err := k.deps.Adapter.Login(ctx, rc.Credentials)
	if err != nil {
		return pipeline.Failure(err)
	}
	rc.Session = session
	k.logger.Info("Logged in", logging.F(logging.FieldRunID, rc.RunID))
	return pipeline.Success()
}

func (k *Konnector) fetch(ctx context.Context, rc *pipeline.RunContext) pipeline.Result {
	doc, err := k.deps.Adapter.Fetch(ctx, rc.Session)
	if err != nil {
		return pipeline.Failure(err)
	}
	rc.Document = doc
	return pipeline.Success()
}

func (k *Konnector) extract(_ context.Context, rc *pipeline.RunContext) pipeline.Result {
	bills, err := k.deps.Adapter.Extract(rc.Document)
	if err != nil {
		return pipeline.Failure(err)
	}
	for i := range bills {
		if bills[i].Vendor == "" {
			bills[i].Vendor = k.def.Vendor
		}
		if bills[i].Type == "" {
			bills[i].Type = k.def.BillType
		}
		bills[i].Folder = rc.Folder
	}
	rc.Candidates = bills
	k.logger.Info("Bills retrieved",
		logging.F(logging.FieldRunID, rc.RunID),
		logging.F(logging.FieldCount, len(bills)))
	return pipeline.Success()
}

func (k *Konnector) filter(ctx context.Context, rc *pipeline.RunContext) pipeline.Result {
	existing, err := k.deps.Bills.ExistingBills(ctx, k.def.Vendor, rc.Folder)
	if err != nil {
		return pipeline.Failure(err)
	}
	res := dedup.Filter(rc.Candidates, existing)
	rc.Accepted = res.Accepted
	rc.Duplicates = res.Duplicates
	k.logger.Info("Existing bills filtered",
		logging.F(logging.FieldRunID, rc.RunID),
		logging.F("accepted", len(res.Accepted)),
		logging.F("filtered", len(res.Duplicates)))
	return pipeline.Success()
}

// save stores every accepted bill. A document that cannot be downloaded or
// written only costs the file: the metadata is stored regardless. Accepted
// keeps the dedup partition; Saved lists what reached the store.
func (k *Konnector) save(ctx context.Context, rc *pipeline.RunContext) pipeline.Result {
	rc.Saved = make([]models.Bill, 0, len(rc.Accepted))
	for i, bill := range rc.Accepted {
		bill.FileName = ""
		if name, err := k.storeDocument(ctx, rc, bill); err != nil {
			rc.Warn(k.logger, err, "document not stored",
				logging.F(logging.FieldRunID, rc.RunID),
				logging.F(logging.FieldBillDate, bill.DateString()),
				logging.F(logging.FieldAmount, bill.Amount.String()))
		} else {
			bill.FileName = name
		}

		stored, err := k.deps.Bills.SaveBill(ctx, bill, k.def.FileTags)
		if err != nil {
			return pipeline.Failure(err)
		}
		rc.Accepted[i] = stored
		rc.Saved = append(rc.Saved, stored)
	}
	return pipeline.Success()
}

// storeDocument returns the stored file name, or "" when there is nothing
// to store.
func (k *Konnector) storeDocument(ctx context.Context, rc *pipeline.RunContext, bill models.Bill) (string, error) {
	if k.deps.Files == nil || bill.DocumentURL == "" {
		return "", nil
	}
	name := files.FileName(bill, k.def.FilePattern)
	saveErr := func(err error) error {
		return &runerror.SaveError{Vendor: k.def.Vendor, Document: name, Err: err}
	}

	data := bill.File
	if len(data) == 0 {
		var err error
		data, err = k.deps.Adapter.Download(ctx, rc.Session, bill.DocumentURL)
		if err != nil {
			return "", saveErr(err)
		}
	}
	if k.deps.ValidateDocument != nil {
		if err := k.deps.ValidateDocument(data); err != nil {
			return "", saveErr(err)
		}
	}
	location, err := k.deps.Files.Put(ctx, rc.Folder, name, data)
	if err != nil {
		return "", saveErr(err)
	}
	k.logger.Debug("Document stored",
		logging.F(logging.FieldRunID, rc.RunID),
		logging.F(logging.FieldFile, location))
	return name, nil
}

// link annotates accepted bills with their bank operation. Ledger problems
// leave bills unlinked and are reported as warnings.
func (k *Konnector) link(ctx context.Context, rc *pipeline.RunContext) pipeline.Result {
	if k.deps.Ledger == nil || len(rc.Accepted) == 0 {
		return pipeline.Success()
	}
	from, to, _ := k.linker.Window(rc.Accepted)

	ops, err := k.deps.Ledger.Operations(ctx, from, to)
	if err != nil {
		rc.Warn(k.logger, err, "bank operations unavailable", logging.F(logging.FieldRunID, rc.RunID))
		return pipeline.Success()
	}
	ops, err = k.withoutLinked(ctx, ops)
	if err != nil {
		rc.Warn(k.logger, err, "linked operations unavailable", logging.F(logging.FieldRunID, rc.RunID))
		return pipeline.Success()
	}

	index := make(map[string]int, len(rc.Accepted))
	for i, b := range rc.Accepted {
		index[b.ID] = i
	}

	now := k.deps.Now()
	for _, l := range k.linker.Link(rc.Accepted, ops) {
		if err := k.deps.Bills.LinkBill(ctx, l.BillID, l.OperationID, now); err != nil {
			rc.Warn(k.logger, err, "bill not linked",
				logging.F(logging.FieldRunID, rc.RunID),
				logging.F(logging.FieldOperation, l.OperationID))
			continue
		}
		i := index[l.BillID]
		rc.Accepted[i].BankOperationID = l.OperationID
		linkedAt := now.UTC()
		rc.Accepted[i].LinkedAt = &linkedAt
		rc.Links = append(rc.Links, l)
	}
	return pipeline.Success()
}

// withoutLinked drops operations a previous run already consumed. Operations
// read without an id get a derived one first.
func (k *Konnector) withoutLinked(ctx context.Context, ops []models.BankOperation) ([]models.BankOperation, error) {
	if len(ops) == 0 {
		return ops, nil
	}
	ids := make([]string, len(ops))
	for i := range ops {
		ops[i] = ops[i].WithID()
		ids[i] = ops[i].ID
	}
	linked, err := k.deps.Bills.LinkedOperationIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to read linked operations: %w", err)
	}
	free := ops[:0:0]
	for _, op := range ops {
		if !linked[op.ID] {
			free = append(free, op)
		}
	}
	return free, nil
}

func (k *Konnector) notify(_ context.Context, rc *pipeline.RunContext) pipeline.Result {
	if k.deps.Notifier == nil {
		return pipeline.Success()
	}
	if msg, ok := k.deps.Notifier.Build(k.def.NotificationKey, len(rc.Accepted)); ok {
		rc.Notification = msg
	}
	return pipeline.Success()
}

func (k *Konnector) logout(ctx context.Context, rc *pipeline.RunContext) pipeline.Result {
	if err := k.deps.Adapter.Logout(ctx, rc.Session); err != nil {
		return pipeline.Failure(err)
	}
	return pipeline.Success()
}
