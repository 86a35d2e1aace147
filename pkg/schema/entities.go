package schema

// Role determines how a declared column is defaulted and coerced.
type Role int

const (
	RoleText Role = iota
	RoleKey
	RoleQuantity
	RoleMoney
	RoleDate
)

// ColumnSpec declares one column of an entity by its source spelling.
type ColumnSpec struct {
	Name string
	Role Role
}

// Entity describes a source record set: its declared columns and the
// layout its date column is written in.
type Entity struct {
	Name       string
	Columns    []ColumnSpec
	DateFormat string
}

// KeyColumn is the join key name shared by every cleaned entity.
const KeyColumn = "product_id"

// Unknown is the default for missing text and identifier values.
const Unknown = "UNKNOWN"

// Sales is read from the externally supplied sales_data.csv.
var Sales = Entity{
	Name: "sales",
	Columns: []ColumnSpec{
		{Name: "Transaction_ID", Role: RoleText},
		{Name: "Product_ID", Role: RoleKey},
		{Name: "Quantity", Role: RoleQuantity},
		{Name: "Price", Role: RoleMoney},
		{Name: "Transaction_Date", Role: RoleDate},
	},
	DateFormat: "01/02/2006",
}

// Products is extracted from the source products table.
var Products = Entity{
	Name: "products",
	Columns: []ColumnSpec{
		{Name: "product_id", Role: RoleKey},
		{Name: "product_name", Role: RoleText},
		{Name: "category", Role: RoleText},
		{Name: "price", Role: RoleMoney},
		{Name: "stock_available", Role: RoleQuantity},
	},
}

// Transactions is extracted from the source transactions table.
var Transactions = Entity{
	Name: "transactions",
	Columns: []ColumnSpec{
		{Name: "transaction_id", Role: RoleText},
		{Name: "customer_id", Role: RoleText},
		{Name: "product_id", Role: RoleKey},
		{Name: "quantity", Role: RoleQuantity},
		{Name: "transaction_date", Role: RoleDate},
		{Name: "total_amount", Role: RoleMoney},
	},
	DateFormat: "2006-01-02",
}

// kindFor is the column kind a role is coerced to.
func kindFor(r Role) Kind {
	switch r {
	case RoleKey, RoleQuantity:
		return KindInt
	case RoleMoney:
		return KindFloat
	case RoleDate:
		return KindDate
	default:
		return KindString
	}
}
