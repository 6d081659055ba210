// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/gatehouse/internal/store"
	"github.com/holomush/gatehouse/internal/store/storetest"
)

var (
	testPool *pgxpool.Pool
	testDB   *storetest.Postgres
)

func TestPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Postgres User Repository Suite")
}

var _ = BeforeSuite(func() {
	ctx := context.Background()
	var err error
	testDB, err = storetest.StartPostgres(ctx, true)
	Expect(err).NotTo(HaveOccurred())

	testPool, err = store.OpenPostgres(ctx, testDB.URL)
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if testPool != nil {
		testPool.Close()
	}
	Expect(testDB.Terminate(context.Background())).To(Succeed())
})
