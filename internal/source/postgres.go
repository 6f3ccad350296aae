package source

import (
	"context"
	"errors"
	"strings"

	"genfity-order-reports/internal/report"
	"genfity-order-reports/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Postgres struct {
	DB Querier
}

func NewPostgres(db Querier) *Postgres {
	return &Postgres{DB: db}
}

const orderColumns = `
	o.id::text, coalesce(o.display_id, ''), o.created_at, o.total_price, coalesce(o.status, ''),
	coalesce(o.type, ''), coalesce(o.payment_method, ''), coalesce(o.table_name, ''),
	coalesce(o.table_number, ''), coalesce(o.delivery_address, ''), o.partner_id::text
`

func (p *Postgres) FetchOrders(ctx context.Context, partnerID string, window report.TimeWindow, opts FetchOptions) (Snapshot, error) {
	rows, err := p.DB.Query(ctx, `
		select `+orderColumns+`
		from orders o
		where o.partner_id::text = $1
		  and o.created_at >= $2
		  and o.created_at <= $3
		order by o.created_at asc, o.id asc
	`, partnerID, window.Start, window.End)
	if err != nil {
		return Snapshot{}, err
	}
	orders, err := scanOrders(rows)
	if err != nil {
		return Snapshot{}, err
	}

	if err := p.attachDetails(ctx, orders); err != nil {
		return Snapshot{}, err
	}

	snapshot := Snapshot{Orders: orders}
	if opts.PreAggregate {
		pre, err := p.preAggregate(ctx, partnerID, window)
		if err != nil {
			return Snapshot{}, err
		}
		snapshot.Pre = pre
	}
	return snapshot, nil
}

func (p *Postgres) FetchOrder(ctx context.Context, partnerID string, orderID string) (report.Order, error) {
	rows, err := p.DB.Query(ctx, `
		select `+orderColumns+`
		from orders o
		where o.partner_id::text = $1 and o.id::text = $2
	`, partnerID, orderID)
	if err != nil {
		return report.Order{}, err
	}
	orders, err := scanOrders(rows)
	if err != nil {
		return report.Order{}, err
	}
	if len(orders) == 0 {
		return report.Order{}, ErrOrderNotFound
	}
	if err := p.attachDetails(ctx, orders); err != nil {
		return report.Order{}, err
	}
	return orders[0], nil
}

func (p *Postgres) FetchPartnerSettings(ctx context.Context, partnerID string) (PartnerSettings, error) {
	var (
		name     pgtype.Text
		code     pgtype.Text
		symbol   pgtype.Text
		timezone pgtype.Text
	)
	err := p.DB.QueryRow(ctx, `
		select name, currency_code, currency_symbol, timezone
		from partners
		where id::text = $1
	`, partnerID).Scan(&name, &code, &symbol, &timezone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PartnerSettings{PartnerID: partnerID}, nil
		}
		return PartnerSettings{}, err
	}
	return PartnerSettings{
		PartnerID:      partnerID,
		Name:           strings.TrimSpace(name.String),
		CurrencyCode:   strings.TrimSpace(code.String),
		CurrencySymbol: strings.TrimSpace(symbol.String),
		Timezone:       strings.TrimSpace(timezone.String),
	}, nil
}

// SetPaymentMethod only moves orders out of the unset bucket. Stored values
// are normalized the same way report.ParsePaymentMethod reads them.
func (p *Postgres) SetPaymentMethod(ctx context.Context, partnerID string, orderID string, method report.PaymentMethod) (bool, error) {
	tag, err := p.DB.Exec(ctx, `
		update orders
		set payment_method = $3, updated_at = now()
		where partner_id::text = $1
		  and id::text = $2
		  and lower(trim(coalesce(payment_method, ''))) not in ('cash', 'upi', 'card')
	`, partnerID, orderID, string(method))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanOrders(rows pgx.Rows) ([]report.Order, error) {
	defer rows.Close()

	orders := make([]report.Order, 0)
	for rows.Next() {
		var (
			order      report.Order
			totalPrice pgtype.Numeric
			status     string
			orderType  string
			method     string
		)
		if err := rows.Scan(&order.ID, &order.DisplayID, &order.CreatedAt, &totalPrice, &status,
			&orderType, &method, &order.TableName, &order.TableNumber, &order.DeliveryAddress, &order.PartnerID); err != nil {
			return nil, err
		}
		order.TotalPrice = utils.NumericToDecimal(totalPrice)
		order.Status = report.OrderStatus(strings.ToLower(strings.TrimSpace(status)))
		order.PaymentMethod = report.PaymentMethod(strings.ToLower(strings.TrimSpace(method)))
		if parsed, ok := report.ParseOrderType(orderType); ok {
			order.Type = parsed
		} else {
			order.Type = report.InferOrderType(order.DeliveryAddress, order.TableName, order.TableNumber)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachDetails loads items and extra charges for all orders in two queries.
func (p *Postgres) attachDetails(ctx context.Context, orders []report.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, 0, len(orders))
	index := make(map[string]int, len(orders))
	for i, order := range orders {
		ids = append(ids, order.ID)
		index[order.ID] = i
	}

	rows, err := p.DB.Query(ctx, `
		select oi.order_id::text, oi.id::text, oi.quantity,
		       m.id::text, m.name, m.price, mc.name
		from order_items oi
		left join menus m on m.id = oi.menu_id
		left join menu_categories mc on mc.id = m.category_id
		where oi.order_id::text = any($1)
		order by oi.order_id, oi.id
	`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var (
			orderID  string
			itemID   string
			quantity int
			menuID   pgtype.Text
			menuName pgtype.Text
			price    pgtype.Numeric
			category pgtype.Text
		)
		if err := rows.Scan(&orderID, &itemID, &quantity, &menuID, &menuName, &price, &category); err != nil {
			rows.Close()
			return err
		}
		item := report.OrderItem{ID: itemID, Quantity: quantity}
		if menuID.Valid {
			item.Menu = &report.MenuItem{
				ID:       menuID.String,
				Name:     menuName.String,
				Price:    utils.NumericOrZero(price),
				Category: category.String,
			}
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = p.DB.Query(ctx, `
		select order_id::text, coalesce(name, ''), amount
		from order_extra_charges
		where order_id::text = any($1)
		order by order_id, id
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID string
			name    string
			amount  pgtype.Numeric
		)
		if err := rows.Scan(&orderID, &name, &amount); err != nil {
			return err
		}
		if i, ok := index[orderID]; ok {
			orders[i].ExtraCharges = append(orders[i].ExtraCharges, report.ExtraCharge{Name: name, Amount: utils.NumericOrZero(amount)})
		}
	}
	return rows.Err()
}

// preAggregate returns the completed total and the cash/upi/card buckets.
// The unset bucket is left for the engine to derive.
func (p *Postgres) preAggregate(ctx context.Context, partnerID string, window report.TimeWindow) (*report.PreAggregate, error) {
	var (
		totalCount, cashCount, upiCount, cardCount int
		totalSum, cashSum, upiSum, cardSum         pgtype.Numeric
	)
	err := p.DB.QueryRow(ctx, `
		select count(*),
		       coalesce(sum(total_price), 0),
		       count(*) filter (where lower(trim(payment_method)) = 'cash'),
		       coalesce(sum(total_price) filter (where lower(trim(payment_method)) = 'cash'), 0),
		       count(*) filter (where lower(trim(payment_method)) = 'upi'),
		       coalesce(sum(total_price) filter (where lower(trim(payment_method)) = 'upi'), 0),
		       count(*) filter (where lower(trim(payment_method)) = 'card'),
		       coalesce(sum(total_price) filter (where lower(trim(payment_method)) = 'card'), 0)
		from orders
		where partner_id::text = $1
		  and lower(status) = 'completed'
		  and created_at >= $2
		  and created_at <= $3
	`, partnerID, window.Start, window.End).Scan(
		&totalCount, &totalSum,
		&cashCount, &cashSum,
		&upiCount, &upiSum,
		&cardCount, &cardSum,
	)
	if err != nil {
		return nil, err
	}

	return &report.PreAggregate{
		Total: &report.AggregateTotals{Count: totalCount, Sum: utils.NumericOrZero(totalSum)},
		Payments: map[report.PaymentMethod]report.AggregateTotals{
			report.PaymentCash: {Count: cashCount, Sum: utils.NumericOrZero(cashSum)},
			report.PaymentUPI:  {Count: upiCount, Sum: utils.NumericOrZero(upiSum)},
			report.PaymentCard: {Count: cardCount, Sum: utils.NumericOrZero(cardSum)},
		},
	}, nil
}
