package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"nearbuy/internal/domain/repository"
	"nearbuy/pkg/errors"
)

type firestoreTxKey struct{}

type firestoreUnitOfWork struct {
	client *firestore.Client
}

// NewFirestoreUnitOfWork wraps client.RunTransaction. Firestore requires every
// read in a transaction to happen before the first write, so callers load all
// documents they need before mutating any of them.
func NewFirestoreUnitOfWork(client *firestore.Client) repository.UnitOfWork {
	return &firestoreUnitOfWork{client: client}
}

func (u *firestoreUnitOfWork) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if firestoreTx(ctx) != nil {
		return fn(ctx)
	}
	return u.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(context.WithValue(ctx, firestoreTxKey{}, tx))
	})
}

func firestoreTx(ctx context.Context) *firestore.Transaction {
	tx, _ := ctx.Value(firestoreTxKey{}).(*firestore.Transaction)
	return tx
}

func fsGet(ctx context.Context, ref *firestore.DocumentRef) (*firestore.DocumentSnapshot, error) {
	if tx := firestoreTx(ctx); tx != nil {
		return tx.Get(ref)
	}
	return ref.Get(ctx)
}

func fsCreate(ctx context.Context, ref *firestore.DocumentRef, data interface{}) error {
	if tx := firestoreTx(ctx); tx != nil {
		return tx.Create(ref, data)
	}
	_, err := ref.Create(ctx, data)
	return err
}

func fsSet(ctx context.Context, ref *firestore.DocumentRef, data interface{}) error {
	if tx := firestoreTx(ctx); tx != nil {
		return tx.Set(ref, data)
	}
	_, err := ref.Set(ctx, data)
	return err
}

func fsDelete(ctx context.Context, ref *firestore.DocumentRef) error {
	if tx := firestoreTx(ctx); tx != nil {
		return tx.Delete(ref)
	}
	_, err := ref.Delete(ctx)
	return err
}

func fsDocuments(ctx context.Context, q firestore.Query) *firestore.DocumentIterator {
	if tx := firestoreTx(ctx); tx != nil {
		return tx.Documents(q)
	}
	return q.Documents(ctx)
}

// fsAll drains a query into typed values.
func fsAll[T any](ctx context.Context, q firestore.Query, resource string) ([]*T, error) {
	iter := fsDocuments(ctx, q)
	defer iter.Stop()

	var out []*T
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate "+resource, err)
		}
		var v T
		if err := doc.DataTo(&v); err != nil {
			return nil, errors.Internal("Failed to parse "+resource+" data", err)
		}
		out = append(out, &v)
	}
	return out, nil
}

// fsFirst returns the first match or a NotFound error.
func fsFirst[T any](ctx context.Context, q firestore.Query, resource string) (*T, error) {
	items, err := fsAll[T](ctx, q.Limit(1), resource)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.NotFound(resource, nil)
	}
	return items[0], nil
}

func fsLoad[T any](ctx context.Context, ref *firestore.DocumentRef, resource string) (*T, error) {
	doc, err := fsGet(ctx, ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound(resource, err)
		}
		return nil, errors.Internal("Failed to get "+resource, err)
	}
	var v T
	if err := doc.DataTo(&v); err != nil {
		return nil, errors.Internal("Failed to parse "+resource+" data", err)
	}
	return &v, nil
}

func fsWriteError(resource, action string, err error) error {
	if status.Code(err) == codes.AlreadyExists {
		return errors.Conflict(resource + " already exists")
	}
	return errors.Internal("Failed to "+action+" "+resource, err)
}

// chunk splits ids for "in" queries, which Firestore caps at 30 values.
func chunk(ids []string, size int) [][]string {
	var out [][]string
	for size < len(ids) {
		ids, out = ids[size:], append(out, ids[:size])
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
