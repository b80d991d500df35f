package service

import (
	"context"
	"errors"
	"testing"

	"socialcredit-api/internal/model"
)

func TestLinkValidationOrder(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	steve := env.link(t, 1, "Steve")

	// "Alex" resolves to steve's uuid, as after a rename.
	env.verifier.add("Alex", steve.MinecraftUUID)
	env.verifier.add("Notch", "069a79f444e94726a5befca90e38aaf5")

	tests := []struct {
		name string
		req  LinkRequest
		down bool
		want error
	}{
		{
			name: "already linked wins over everything",
			req:  LinkRequest{DiscordID: 1, DiscordUsername: "x", MinecraftUsername: "nobody", MinecraftUUID: "bad"},
			want: model.ErrAlreadyLinked,
		},
		{
			name: "already linked wins over verifier failure",
			req:  LinkRequest{DiscordID: 1, DiscordUsername: "x", MinecraftUsername: "notch", MinecraftUUID: "bad"},
			down: true,
			want: model.ErrAlreadyLinked,
		},
		{
			name: "verifier unavailable",
			req:  LinkRequest{DiscordID: 2, DiscordUsername: "n", MinecraftUsername: "notch", MinecraftUUID: "069a79f444e94726a5befca90e38aaf5"},
			down: true,
			want: model.ErrVerifierUnavailable,
		},
		{
			name: "unknown username",
			req:  LinkRequest{DiscordID: 2, DiscordUsername: "n", MinecraftUsername: "nobody", MinecraftUUID: "x"},
			want: model.ErrUnknownExternalIdentity,
		},
		{
			name: "uuid mismatch before taken",
			req:  LinkRequest{DiscordID: 2, DiscordUsername: "n", MinecraftUsername: "steve", MinecraftUUID: "deadbeef"},
			want: model.ErrIdentityMismatch,
		},
		{
			name: "username taken",
			req:  LinkRequest{DiscordID: 2, DiscordUsername: "n", MinecraftUsername: "STEVE", MinecraftUUID: steve.MinecraftUUID},
			want: model.ErrIdentityTaken,
		},
		{
			name: "uuid taken",
			req:  LinkRequest{DiscordID: 2, DiscordUsername: "n", MinecraftUsername: "alex", MinecraftUUID: steve.MinecraftUUID},
			want: model.ErrIdentityTaken,
		},
		{
			name: "uuid compared case-insensitively",
			req:  LinkRequest{DiscordID: 2, DiscordUsername: "n", MinecraftUsername: "Notch", MinecraftUUID: "069A79F444E94726A5BEFCA90E38AAF5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.verifier.err = nil
			if tt.down {
				env.verifier.err = errors.New("connection refused")
			}
			before := env.verifier.callCount()

			acc, err := env.ledger.Link(ctx, tt.req)
			assertErr(t, err, tt.want)

			if calls := env.verifier.callCount() - before; calls != 1 {
				t.Errorf("verifier called %d times, want 1", calls)
			}
			if tt.want == nil {
				if acc.MinecraftUsername != "notch" || acc.MinecraftUUID != "069a79f444e94726a5befca90e38aaf5" {
					t.Errorf("identity not lower-cased: %+v", acc)
				}
				if acc.Balance != 0 || acc.HasLedger {
					t.Errorf("new account = %+v, want zero balance and no ledger", acc)
				}
			}
		})
	}
	env.verifier.err = nil
}

func TestLinkAdmin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	acc, err := env.ledger.LinkAdmin(ctx, 4242, "ModTeam")
	if err != nil {
		t.Fatalf("LinkAdmin() error: %v", err)
	}
	if acc.MinecraftUsername != "modteam" || acc.MinecraftUUID != "4242" || acc.DiscordUsername != "ModTeam" {
		t.Errorf("admin account = %+v", acc)
	}
	if env.verifier.callCount() != 0 {
		t.Error("LinkAdmin consulted the verifier")
	}

	_, err = env.ledger.LinkAdmin(ctx, 4242, "ModTeam")
	assertErr(t, err, model.ErrAlreadyLinked)
}

func TestTransferValidationOrder(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.link(t, 1, "alice")
	env.link(t, 2, "bob")
	env.link(t, 3, "carol") // no ledger
	env.bind(t, 1, 901)
	env.bind(t, 2, 902)
	env.fund(t, 1, 100)

	tests := []struct {
		name string
		req  TransferRequest
		want error
	}{
		{"unknown recipient before amount", TransferRequest{SenderID: 1, RecipientUsername: "nobody", Amount: 0}, model.ErrUnknownRecipient},
		{"zero amount", TransferRequest{SenderID: 1, RecipientUsername: "bob", Amount: 0}, model.ErrInvalidAmount},
		{"negative amount", TransferRequest{SenderID: 1, RecipientUsername: "bob", Amount: -5}, model.ErrInvalidAmount},
		{"sender not linked", TransferRequest{SenderID: 99, RecipientUsername: "bob", Amount: 5}, model.ErrNotFound},
		{"insufficient before self", TransferRequest{SenderID: 1, RecipientUsername: "alice", Amount: 500}, model.ErrInsufficientFunds},
		{"self transfer", TransferRequest{SenderID: 1, RecipientUsername: "ALICE", Amount: 5}, model.ErrSelfTransfer},
		{"recipient without ledger", TransferRequest{SenderID: 1, RecipientUsername: "carol", Amount: 5}, model.ErrRecipientNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ledger.Transfer(ctx, tt.req)
			assertErr(t, err, tt.want)
		})
	}

	if got := env.balance(t, 1); got != 100 {
		t.Errorf("sender balance after rejected transfers = %d, want 100", got)
	}
	if n := len(env.notifier.all()); n != 0 {
		t.Errorf("%d notifications sent for rejected transfers", n)
	}
}

func TestTransferSuccess(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.link(t, 1, "alice")
	env.link(t, 2, "bob")
	env.bind(t, 2, 902)
	env.fund(t, 1, 100)

	res, err := env.ledger.Transfer(ctx, TransferRequest{SenderID: 1, RecipientUsername: "Bob", Amount: 30})
	if err != nil {
		t.Fatalf("Transfer() error: %v", err)
	}

	if res.SenderBalance != 70 || res.RecipientChannelID != 902 {
		t.Errorf("result = %+v, want sender balance 70 and channel 902", res)
	}
	if res.Record.SenderID != 1 || res.Record.ReceiverID != 2 || res.Record.Amount != 30 || res.Record.IsReward() {
		t.Errorf("record = %+v", res.Record)
	}
	if a, b := env.balance(t, 1), env.balance(t, 2); a+b != 100 || b != 30 {
		t.Errorf("balances = %d, %d; want 70, 30", a, b)
	}

	sent := env.notifier.all()
	if len(sent) != 1 || sent[0].ChannelID != 902 || sent[0].Kind != NotifyTransfer || sent[0].Amount != 30 {
		t.Errorf("notifications = %+v", sent)
	}

	actions := env.audit.actions()
	if len(actions) == 0 || actions[len(actions)-1] != model.AuditTransfer {
		t.Errorf("audit actions = %v, want trailing transfer", actions)
	}
}

func TestTransferNotificationFailureKeepsTransfer(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.link(t, 1, "alice")
	env.link(t, 2, "bob")
	env.bind(t, 2, 902)
	env.fund(t, 1, 10)
	env.notifier.err = errors.New("redis down")

	if _, err := env.ledger.Transfer(ctx, TransferRequest{SenderID: 1, RecipientUsername: "bob", Amount: 10}); err != nil {
		t.Fatalf("Transfer() error: %v", err)
	}
	if got := env.balance(t, 2); got != 10 {
		t.Errorf("recipient balance = %d, want 10", got)
	}
}

func TestSetBalance(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.link(t, 1, "alice")
	env.fund(t, 1, 40)

	_, err := env.ledger.SetBalance(ctx, 7, 99, 10)
	assertErr(t, err, model.ErrNotFound)

	_, err = env.ledger.SetBalance(ctx, 7, 1, -1)
	assertErr(t, err, model.ErrInvalidAmount)

	change, err := env.ledger.SetBalance(ctx, 7, 1, 500)
	if err != nil {
		t.Fatalf("SetBalance() error: %v", err)
	}
	if change.PriorBalance != 40 || change.Balance != 500 || change.DiscordUsername != "discord_alice" {
		t.Errorf("change = %+v", change)
	}
	if got := env.balance(t, 1); got != 500 {
		t.Errorf("balance = %d, want 500", got)
	}
}

func TestOpenAndBindLedger(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.link(t, 1, "alice")
	env.link(t, 2, "bob")

	_, err := env.ledger.OpenLedger(ctx, 1)
	assertErr(t, err, model.ErrCategoryNotConfigured)

	if err := env.settings.Set(ctx, model.SettingCategory, 555); err != nil {
		t.Fatalf("Set(category) error: %v", err)
	}

	_, err = env.ledger.OpenLedger(ctx, 99)
	assertErr(t, err, model.ErrNotFound)

	opening, err := env.ledger.OpenLedger(ctx, 1)
	if err != nil {
		t.Fatalf("OpenLedger() error: %v", err)
	}
	if opening.CategoryID != 555 || opening.Account.DiscordID != 1 {
		t.Errorf("opening = %+v", opening)
	}

	acc, err := env.ledger.BindLedger(ctx, 1, 901)
	if err != nil {
		t.Fatalf("BindLedger() error: %v", err)
	}
	if !acc.HasLedger || *acc.LedgerChannelID != 901 {
		t.Errorf("bound account = %+v", acc)
	}

	_, err = env.ledger.OpenLedger(ctx, 1)
	assertErr(t, err, model.ErrLedgerExists)

	_, err = env.ledger.BindLedger(ctx, 2, 901)
	assertErr(t, err, model.ErrDuplicateIdentity)

	owner, err := env.ledger.FindByLedgerChannel(ctx, 901)
	if err != nil || owner.DiscordID != 1 {
		t.Errorf("FindByLedgerChannel() = %+v, %v", owner, err)
	}
}

func TestLookups(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.link(t, 1, "Steve")

	name, err := env.ledger.MinecraftName(ctx, 1)
	if err != nil {
		t.Fatalf("MinecraftName() error: %v", err)
	}
	if name.Username != "Steve" || !name.Verified {
		t.Errorf("MinecraftName() = %+v, want verified Steve", name)
	}

	env.verifier.err = errors.New("timeout")
	name, err = env.ledger.MinecraftName(ctx, 1)
	if err != nil {
		t.Fatalf("MinecraftName() with verifier down error: %v", err)
	}
	if name.Username != "steve" || name.Verified {
		t.Errorf("fallback = %+v, want stored unverified name", name)
	}
	env.verifier.err = nil

	_, err = env.ledger.MinecraftName(ctx, 99)
	assertErr(t, err, model.ErrNotFound)

	acc, err := env.ledger.DiscordName(ctx, "STEVE")
	if err != nil || acc.DiscordID != 1 {
		t.Errorf("DiscordName() = %+v, %v", acc, err)
	}
	_, err = env.ledger.DiscordName(ctx, "herobrine")
	assertErr(t, err, model.ErrNotFound)
}

func TestListTransfers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.link(t, 1, "alice")
	env.link(t, 2, "bob")
	env.bind(t, 1, 901)
	env.bind(t, 2, 902)
	env.fund(t, 1, 100)

	for i := int64(1); i <= 5; i++ {
		if _, err := env.ledger.Transfer(ctx, TransferRequest{SenderID: 1, RecipientUsername: "bob", Amount: i}); err != nil {
			t.Fatalf("Transfer(%d) error: %v", i, err)
		}
	}

	records, total, err := env.ledger.ListTransfers(ctx, 2, 1, 2)
	if err != nil {
		t.Fatalf("ListTransfers() error: %v", err)
	}
	if total != 5 || len(records) != 2 {
		t.Fatalf("ListTransfers() = %d records of %d, want 2 of 5", len(records), total)
	}
	if records[0].Amount != 5 {
		t.Errorf("newest record amount = %d, want 5", records[0].Amount)
	}

	_, _, err = env.ledger.ListTransfers(ctx, 99, 1, 10)
	assertErr(t, err, model.ErrNotFound)
}

func TestConcurrentServiceTransfers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.link(t, 1, "alice")
	env.link(t, 2, "bob")
	env.bind(t, 2, 902)
	env.fund(t, 1, 25)

	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		go func() {
			_, err := env.ledger.Transfer(ctx, TransferRequest{SenderID: 1, RecipientUsername: "bob", Amount: 1})
			errs <- err
		}()
	}

	ok := 0
	for i := 0; i < 40; i++ {
		err := <-errs
		switch {
		case err == nil:
			ok++
		case errors.Is(err, model.ErrInsufficientFunds):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if ok != 25 {
		t.Errorf("%d transfers succeeded, want 25", ok)
	}
	if a, b := env.balance(t, 1), env.balance(t, 2); a != 0 || b != 25 {
		t.Errorf("balances = %d, %d; want 0, 25", a, b)
	}
	if n := len(env.notifier.all()); n != 25 {
		t.Errorf("%d notifications, want 25", n)
	}
}
