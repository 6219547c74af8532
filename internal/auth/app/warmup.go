package app

import (
	"context"
	"time"

	"github.com/aussiebroadwan/messenger/pkg/cryptox"
)

const warmupPassword = "warmup-password"

// warmup runs the expensive request paths a few times before the listener
// opens and logs how long each took, so first requests are not the slow ones
// and operators can see the cost of the configured parameters.
func (app *Application) warmup(ctx context.Context, runs int) {
	if runs <= 0 {
		return
	}

	var hashTotal, verifyTotal, cipherTotal, pingTotal time.Duration
	for i := 0; i < runs; i++ {
		start := time.Now()
		hash, err := cryptox.HashPassword(warmupPassword)
		hashTotal += time.Since(start)
		if err != nil {
			app.logger.Warn("warmup hash failed", "error", err)
			return
		}

		start = time.Now()
		if err := cryptox.VerifyPassword(warmupPassword, hash); err != nil {
			app.logger.Warn("warmup verify failed", "error", err)
			return
		}
		verifyTotal += time.Since(start)

		start = time.Now()
		blob, err := app.cipher.Encrypt("warmup@example.invalid")
		if err == nil {
			_, err = app.cipher.Decrypt(blob)
		}
		cipherTotal += time.Since(start)
		if err != nil {
			app.logger.Warn("warmup cipher failed", "error", err)
			return
		}

		start = time.Now()
		if err := app.db.Ping(ctx); err != nil {
			app.logger.Warn("warmup ping failed", "error", err)
			return
		}
		pingTotal += time.Since(start)
	}

	n := time.Duration(runs)
	app.logger.Info("warmup complete",
		"runs", runs,
		"hash_avg", (hashTotal / n).String(),
		"verify_avg", (verifyTotal / n).String(),
		"cipher_avg", (cipherTotal / n).String(),
		"db_ping_avg", (pingTotal / n).String(),
	)
}
