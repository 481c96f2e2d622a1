package memberships

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/shopbridge/shopbridge-backend/internal/testutil"
	"github.com/shopbridge/shopbridge-backend/pkg/enums"
	pkgerrors "github.com/shopbridge/shopbridge-backend/pkg/errors"
)

func TestGrantsRoleDefaults(t *testing.T) {
	cases := []struct {
		role    enums.MemberRole
		allowed []enums.Capability
		denied  []enums.Capability
	}{
		{
			role: enums.MemberRoleOwner,
			allowed: []enums.Capability{
				enums.CapabilityManagePurchases,
				enums.CapabilityApprovePurchases,
				enums.CapabilityRecordPurchasePayments,
				enums.CapabilityTransferStock,
			},
		},
		{
			role: enums.MemberRoleManager,
			allowed: []enums.Capability{
				enums.CapabilityManagePurchases,
				enums.CapabilityApprovePurchases,
				enums.CapabilityRecordPurchasePayments,
				enums.CapabilityTransferStock,
			},
		},
		{
			role:    enums.MemberRoleCashier,
			allowed: []enums.Capability{enums.CapabilityRecordPurchasePayments},
			denied:  []enums.Capability{enums.CapabilityManagePurchases, enums.CapabilityTransferStock},
		},
		{
			role:    enums.MemberRoleStockClerk,
			allowed: []enums.Capability{enums.CapabilityTransferStock},
			denied:  []enums.Capability{enums.CapabilityApprovePurchases},
		},
		{
			role:   enums.MemberRoleViewer,
			denied: []enums.Capability{enums.CapabilityManagePurchases, enums.CapabilityRecordPurchasePayments},
		},
	}

	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			grants := Grants(tc.role, nil)
			for _, capability := range tc.allowed {
				if !Allows(grants, capability) {
					t.Errorf("expected %s to allow %s", tc.role, capability)
				}
			}
			for _, capability := range tc.denied {
				if Allows(grants, capability) {
					t.Errorf("expected %s to deny %s", tc.role, capability)
				}
			}
		})
	}
}

func TestGrantsExplicitPermissionsExtendRole(t *testing.T) {
	grants := Grants(enums.MemberRoleViewer, []string{"approve_purchases", "not_a_capability"})
	if !Allows(grants, enums.CapabilityApprovePurchases) {
		t.Fatalf("explicit permission not applied")
	}
	if Allows(grants, enums.CapabilityTransferStock) {
		t.Fatalf("unexpected grant")
	}

	wildcard := Grants(enums.MemberRoleCashier, []string{"*"})
	if !Allows(wildcard, enums.CapabilityTransferStock) {
		t.Fatalf("wildcard permission should grant everything")
	}
}

func TestOracleRequireNamesMissingCapability(t *testing.T) {
	conn := testutil.OpenDB(t)
	shop := testutil.CreateShop(t, conn, "Corner Store", enums.ShopStatusActive)
	cashier := testutil.AddMember(t, conn, shop.ID, enums.MemberRoleCashier)
	oracle := NewOracle(NewRepository(conn))
	ctx := context.Background()

	if err := oracle.Require(ctx, cashier, shop.ID, enums.CapabilityRecordPurchasePayments); err != nil {
		t.Fatalf("cashier should record payments: %v", err)
	}

	err := oracle.Require(ctx, cashier, shop.ID, enums.CapabilityApprovePurchases)
	if err == nil {
		t.Fatalf("expected forbidden error")
	}
	if !errors.Is(err, ErrMissingCapability) {
		t.Fatalf("expected ErrMissingCapability, got %v", err)
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden code, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["capability"] != enums.CapabilityApprovePurchases {
		t.Fatalf("details should name the capability, got %#v", typed.Details())
	}
}

func TestOracleIgnoresInactiveAndForeignMemberships(t *testing.T) {
	conn := testutil.OpenDB(t)
	shop := testutil.CreateShop(t, conn, "Main Street", enums.ShopStatusActive)
	other := testutil.CreateShop(t, conn, "Elsewhere", enums.ShopStatusActive)
	removed := testutil.AddMembership(t, conn, shop.ID, uuid.New(), enums.MemberRoleOwner, enums.MembershipStatusRemoved)
	outsider := testutil.AddMember(t, conn, other.ID, enums.MemberRoleOwner)
	oracle := NewOracle(NewRepository(conn))
	ctx := context.Background()

	for name, userID := range map[string]uuid.UUID{"removed": removed, "outsider": outsider, "unknown": uuid.New()} {
		member, err := oracle.IsMember(ctx, userID, shop.ID)
		if err != nil {
			t.Fatalf("%s: is member: %v", name, err)
		}
		if member {
			t.Fatalf("%s should not be a member", name)
		}
		if err := oracle.RequireMember(ctx, userID, shop.ID); !errors.Is(err, ErrNotMember) {
			t.Fatalf("%s: expected ErrNotMember, got %v", name, err)
		}
		ok, err := oracle.HasCapability(ctx, userID, shop.ID, enums.CapabilityManagePurchases)
		if err != nil || ok {
			t.Fatalf("%s: expected no capability, got ok=%v err=%v", name, ok, err)
		}
	}
}

func TestOracleWithTxSeesUncommittedMembership(t *testing.T) {
	conn := testutil.OpenDB(t)
	shop := testutil.CreateShop(t, conn, "Tx Shop", enums.ShopStatusActive)
	oracle := NewOracle(NewRepository(conn))
	userID := uuid.New()

	tx := conn.Begin()
	t.Cleanup(func() { tx.Rollback() })
	if _, err := NewRepository(tx).CreateMembership(context.Background(), shop.ID, userID, enums.MemberRoleStockClerk, enums.MembershipStatusActive, nil); err != nil {
		t.Fatalf("create membership: %v", err)
	}
	ok, err := oracle.WithTx(tx).HasCapability(context.Background(), userID, shop.ID, enums.CapabilityTransferStock)
	if err != nil || !ok {
		t.Fatalf("expected capability inside tx, got ok=%v err=%v", ok, err)
	}
}

func TestCreateMembershipValidatesEnums(t *testing.T) {
	repo := NewRepository(testutil.OpenDB(t))
	if _, err := repo.CreateMembership(context.Background(), uuid.New(), uuid.New(), enums.MemberRole("janitor"), enums.MembershipStatusActive, nil); err == nil {
		t.Fatalf("expected invalid role error")
	}
	if _, err := repo.CreateMembership(context.Background(), uuid.New(), uuid.New(), enums.MemberRoleViewer, enums.MembershipStatus("gone"), nil); err == nil {
		t.Fatalf("expected invalid status error")
	}
}
