package authz

// Capabilities is the named boolean matrix the dashboard consults before
// rendering a protected view or action. It is recomputed on every Resolve
// call; nothing caches it, so a role change simply means resolving again.
type Capabilities struct {
	CanManageBrands        bool `json:"can_manage_brands"`
	CanManageItems         bool `json:"can_manage_items"`
	CanManageCustomers     bool `json:"can_manage_customers"`
	CanManageTransactions  bool `json:"can_manage_transactions"`
	CanApproveTransactions bool `json:"can_approve_transactions"`
	CanViewAlerts          bool `json:"can_view_alerts"`
	CanReserveGoods        bool `json:"can_reserve_goods"`
	CanExportData          bool `json:"can_export_data"`
	CanViewDashboard       bool `json:"can_view_dashboard"`
	CanViewOwnTransactions bool `json:"can_view_own_transactions"`
	IsSales                bool `json:"is_sales"`
	IsInventoryManager     bool `json:"is_inventory_manager"`
	IsWarehouseStaff       bool `json:"is_warehouse_staff"`
}

// Resolve derives the capability matrix for a user. A nil user yields all
// capabilities false except the universally granted ones (export, dashboard,
// reserve is excluded for nil since it requires a role).
func Resolve(u *User) Capabilities {
	return Capabilities{
		CanManageBrands:        CanManageBrands(u),
		CanManageItems:         CanManageItems(u),
		CanManageCustomers:     CanManageCustomers(u),
		CanManageTransactions:  CanManageTransactions(u),
		CanApproveTransactions: CanApproveTransactions(u),
		CanViewAlerts:          CanViewAlerts(u),
		CanReserveGoods:        CanReserveGoods(u),
		CanExportData:          CanExportData(u),
		CanViewDashboard:       CanViewDashboard(u),
		CanViewOwnTransactions: CanViewOwnTransactions(u),
		IsSales:                IsSales(u),
		IsInventoryManager:     IsInventoryManager(u),
		IsWarehouseStaff:       IsWarehouseStaff(u),
	}
}

func role(u *User) Role {
	if u == nil {
		return RoleUnknown
	}
	return u.Role
}

// IsSales reports whether the user holds the Sales role.
func IsSales(u *User) bool { return role(u) == RoleSales }

// IsInventoryManager reports whether the user holds the Inventory Manager role.
func IsInventoryManager(u *User) bool { return role(u) == RoleInventoryManager }

// IsWarehouseStaff reports whether the user holds the Warehouse Staff role.
func IsWarehouseStaff(u *User) bool { return role(u) == RoleWarehouseStaff }

// CanManageBrands: brand create/update/archive.
func CanManageBrands(u *User) bool {
	switch role(u) {
	case RoleAdmin, RoleLeader, RoleInventoryManager:
		return true
	case RoleSales, RoleWarehouseStaff, RoleUnknown:
		return false
	default:
		return false
	}
}

// CanManageItems: item create/update and tier price edits.
func CanManageItems(u *User) bool {
	switch role(u) {
	case RoleAdmin, RoleLeader, RoleInventoryManager, RoleWarehouseStaff:
		return true
	case RoleSales, RoleUnknown:
		return false
	default:
		return false
	}
}

// CanManageCustomers: customer create/update/archive and pricing assignment.
func CanManageCustomers(u *User) bool {
	switch role(u) {
	case RoleAdmin, RoleLeader, RoleSales:
		return true
	case RoleInventoryManager, RoleWarehouseStaff, RoleUnknown:
		return false
	default:
		return false
	}
}

// CanManageTransactions: transaction create and status edits.
func CanManageTransactions(u *User) bool {
	switch role(u) {
	case RoleAdmin, RoleLeader, RoleInventoryManager, RoleWarehouseStaff:
		return true
	case RoleSales, RoleUnknown:
		return false
	default:
		return false
	}
}

// CanApproveTransactions: approving special prices and completing
// transactions.
func CanApproveTransactions(u *User) bool {
	switch role(u) {
	case RoleAdmin, RoleLeader, RoleInventoryManager, RoleWarehouseStaff:
		return true
	case RoleSales, RoleUnknown:
		return false
	default:
		return false
	}
}

// CanViewAlerts: low stock alert surface.
func CanViewAlerts(u *User) bool {
	switch role(u) {
	case RoleAdmin, RoleLeader, RoleInventoryManager, RoleWarehouseStaff:
		return true
	case RoleSales, RoleUnknown:
		return false
	default:
		return false
	}
}

// CanReserveGoods: starting an outgoing (sell/reserve) transaction.
func CanReserveGoods(u *User) bool {
	switch role(u) {
	case RoleAdmin, RoleLeader, RoleInventoryManager, RoleWarehouseStaff, RoleSales:
		return true
	case RoleUnknown:
		return false
	default:
		return false
	}
}

// CanExportData is universally granted, including to a nil user.
func CanExportData(u *User) bool { return true }

// CanViewDashboard is universally granted, including to a nil user.
func CanViewDashboard(u *User) bool { return true }

// CanViewOwnTransactions is universally granted, including to a nil user.
func CanViewOwnTransactions(u *User) bool { return true }

// TransactionView is the slice of a transaction the composite checks need.
type TransactionView struct {
	AccountID int64
	Pending   bool
}

// CanCancelOwnPendingTransaction: managers and staff may cancel any
// transaction; Sales may cancel only their own while it is still pending.
func CanCancelOwnPendingTransaction(u *User, tx TransactionView) bool {
	switch role(u) {
	case RoleAdmin, RoleLeader, RoleInventoryManager, RoleWarehouseStaff:
		return true
	case RoleSales:
		return tx.Pending && u != nil && tx.AccountID == u.ID
	default:
		return false
	}
}
