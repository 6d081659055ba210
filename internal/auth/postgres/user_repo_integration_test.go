// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/gatehouse/internal/auth"
	"github.com/holomush/gatehouse/internal/auth/postgres"
)

func makeUser(email, username string) *auth.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &auth.User{
		ID:           ulid.Make().String(),
		Email:        email,
		Username:     username,
		PasswordHash: "$2a$04$hash",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

var _ = Describe("UserRepository", func() {
	var (
		ctx  context.Context
		repo *postgres.UserRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = postgres.NewUserRepository(testPool)
		_, err := testPool.Exec(ctx, `DELETE FROM users`)
		Expect(err).NotTo(HaveOccurred())
	})

	It("round-trips a user", func() {
		user := makeUser("a@x.com", "alice")
		last := "Liddell"
		user.LastName = &last
		Expect(repo.Create(ctx, user)).To(Succeed())

		stored, err := repo.GetActiveByEmail(ctx, "a@x.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.ID).To(Equal(user.ID))
		Expect(stored.FirstName).To(BeNil())
		Expect(stored.DisplayName()).To(Equal("Liddell"))
		Expect(stored.CreatedAt).To(BeTemporally("==", user.CreatedAt))

		byID, err := repo.GetByID(ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(byID.Email).To(Equal("a@x.com"))
	})

	It("matches email exactly", func() {
		Expect(repo.Create(ctx, makeUser("a@x.com", "alice"))).To(Succeed())

		_, err := repo.GetActiveByEmail(ctx, "A@X.COM")
		Expect(err).To(MatchError(auth.ErrNotFound))
	})

	It("hides inactive users from login lookup", func() {
		user := makeUser("a@x.com", "alice")
		user.IsActive = false
		Expect(repo.Create(ctx, user)).To(Succeed())

		_, err := repo.GetActiveByEmail(ctx, "a@x.com")
		Expect(err).To(MatchError(auth.ErrNotFound))

		exists, err := repo.EmailExists(ctx, "a@x.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeTrue())
	})

	It("reports conflicts per field", func() {
		Expect(repo.Create(ctx, makeUser("a@x.com", "alice"))).To(Succeed())

		err := repo.Create(ctx, makeUser("a@x.com", "bob"))
		Expect(auth.IsCode(err, auth.CodeConflict)).To(BeTrue())
		Expect(auth.ConflictField(err)).To(Equal("email"))

		err = repo.Create(ctx, makeUser("b@x.com", "alice"))
		Expect(auth.IsCode(err, auth.CodeConflict)).To(BeTrue())
		Expect(auth.ConflictField(err)).To(Equal("username"))
	})

	It("lets exactly one concurrent registration win", func() {
		const racers = 8
		var wg sync.WaitGroup
		errs := make(chan error, racers)
		for i := range racers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- repo.Create(ctx, makeUser("race@x.com", fmt.Sprintf("racer%d", i)))
			}()
		}
		wg.Wait()
		close(errs)

		var ok, conflicts int
		for err := range errs {
			if err == nil {
				ok++
				continue
			}
			Expect(auth.IsCode(err, auth.CodeConflict)).To(BeTrue(), "unexpected error: %v", err)
			conflicts++
		}
		Expect(ok).To(Equal(1))
		Expect(conflicts).To(Equal(racers - 1))
	})
})
