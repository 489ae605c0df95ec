package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

func id(v uint64) *uint64 { return &v }

func TestAuthorizeTable(t *testing.T) {
	guest := Requester{ID: 7, Role: model.RoleGuest}
	manager := Requester{ID: 2, Role: model.RoleManager}
	admin := Requester{ID: 1, Role: model.RoleAdmin}

	cases := []struct {
		name  string
		req   Requester
		op    Operation
		own   Ownership
		allow bool
	}{
		{"guest books vacant room", guest, OpCreateBooking, None, true},
		{"guest books for self", guest, OpCreateBooking, Self(7), true},
		{"guest books for someone else", guest, OpCreateBooking, Self(8), false},
		{"guest cancels own", guest, OpCancelBooking, Self(7), true},
		{"guest cancels other", guest, OpCancelBooking, Self(8), false},
		{"guest cancels vacant", guest, OpCancelBooking, None, false},
		{"guest pays own", guest, OpRecordPayment, Self(7), true},
		{"guest pays other", guest, OpRecordPayment, Self(8), false},
		{"guest approves payment", guest, OpApprovePayment, Self(7), false},
		{"guest edits booking", guest, OpEditBooking, Self(7), false},
		{"guest edits self", guest, OpEditUser, Ownership{TargetUser: id(7), TargetRole: model.RoleGuest}, true},
		{"guest promotes self", guest, OpEditUser, Ownership{TargetUser: id(7), RoleChange: true}, false},
		{"guest edits other user", guest, OpEditUser, Ownership{TargetUser: id(8), TargetRole: model.RoleGuest}, false},
		{"guest lists actions", guest, OpListActions, None, false},
		{"guest adds room", guest, OpAddRoom, None, false},

		{"manager cancels any", manager, OpCancelBooking, Self(8), true},
		{"manager edits booking", manager, OpEditBooking, Self(8), true},
		{"manager approves payment", manager, OpApprovePayment, Self(8), true},
		{"manager records other's payment", manager, OpRecordPayment, Self(8), false},
		{"manager edits guest", manager, OpEditUser, Ownership{TargetUser: id(8), TargetRole: model.RoleGuest}, true},
		{"manager edits other manager", manager, OpEditUser, Ownership{TargetUser: id(3), TargetRole: model.RoleManager}, false},
		{"manager changes role", manager, OpEditUser, Ownership{TargetUser: id(8), TargetRole: model.RoleGuest, RoleChange: true}, false},
		{"manager lists actions", manager, OpListActions, None, true},
		{"manager adds room", manager, OpAddRoom, None, false},
		{"manager deletes user", manager, OpDeleteUser, Ownership{TargetUser: id(8)}, false},

		{"admin adds room", admin, OpAddRoom, None, true},
		{"admin edits room", admin, OpEditRoom, None, true},
		{"admin deletes user", admin, OpDeleteUser, Ownership{TargetUser: id(8)}, true},
		{"admin deletes self", admin, OpDeleteUser, Ownership{TargetUser: id(1)}, false},
		{"admin promotes manager", admin, OpEditUser, Ownership{TargetUser: id(8), TargetRole: model.RoleGuest, RoleChange: true}, true},
		{"admin creates user", admin, OpCreateUser, None, true},
		{"admin edits booking", admin, OpEditBooking, Self(8), true},

		{"unknown role", Requester{ID: 9, Role: "OWNER"}, OpCreateBooking, None, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.req, tc.op, tc.own)
			if tc.allow {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrForbidden)
			var d *Denied
			if assert.ErrorAs(t, err, &d) {
				assert.Equal(t, tc.op, d.Op)
			}
		})
	}
}
