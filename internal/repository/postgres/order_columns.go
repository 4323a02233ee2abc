package postgres

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"fleetrecon/internal/domain"
)

// orderColumns lists the OrderRecord columns shared by in_progress_orders,
// orders and order_anomalies, in the order used by scanOrderRecord and
// orderRecordArgs.
const orderColumns = `order_reference, driver_name, driver_uuid, payment_method, order_status,
	vehicle_model, vehicle_license_plate, terminal_name, pickup_address, ride_distance,
	payment_confirmed_timestamp, order_created_timestamp, order_accepted_timestamp,
	order_pickup_timestamp, order_dropoff_timestamp, order_finished_timestamp,
	ride_price, booking_fee, toll_fee, tip, cash_discount, commission,
	in_app_discount, net_earnings, cancellation_fee`

const orderColumnCount = 25

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanOrderRecord scans the orderColumns followed by any extra destinations.
func scanOrderRecord(s rowScanner, rec *domain.OrderRecord, extra ...any) error {
	var driverName, driverUUID, paymentMethod, status sql.NullString
	var vehicleModel, plate, terminal, pickupAddress sql.NullString
	var distance sql.NullInt64
	var paid, created, accepted, pickup, dropoff, finished sql.NullInt64
	var ridePrice, bookingFee, tollFee, tip, cashDiscount sql.NullFloat64
	var commission, inAppDiscount, netEarnings, cancelFee sql.NullFloat64

	dest := []any{
		&rec.OrderReference, &driverName, &driverUUID, &paymentMethod, &status,
		&vehicleModel, &plate, &terminal, &pickupAddress, &distance,
		&paid, &created, &accepted, &pickup, &dropoff, &finished,
		&ridePrice, &bookingFee, &tollFee, &tip, &cashDiscount, &commission,
		&inAppDiscount, &netEarnings, &cancelFee,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return err
	}

	rec.DriverName = driverName.String
	rec.DriverUUID = driverUUID.String
	rec.PaymentMethod = domain.PaymentMethod(paymentMethod.String)
	rec.Status = domain.OrderStatus(status.String)
	rec.VehicleModel = vehicleModel.String
	rec.VehicleLicensePlate = plate.String
	rec.TerminalName = terminal.String
	rec.PickupAddress = pickupAddress.String
	rec.RideDistance = int(distance.Int64)
	rec.Timestamps = domain.Timestamps{
		PaymentConfirmed: fromUnix(paid),
		Created:          fromUnix(created),
		Accepted:         fromUnix(accepted),
		Pickup:           fromUnix(pickup),
		Dropoff:          fromUnix(dropoff),
		Finished:         fromUnix(finished),
	}
	rec.Fare = domain.Fare{
		RidePrice:       ridePrice.Float64,
		BookingFee:      bookingFee.Float64,
		TollFee:         tollFee.Float64,
		Tip:             tip.Float64,
		CashDiscount:    cashDiscount.Float64,
		Commission:      commission.Float64,
		InAppDiscount:   inAppDiscount.Float64,
		NetEarnings:     netEarnings.Float64,
		CancellationFee: cancelFee.Float64,
	}
	return nil
}

// orderRecordArgs returns query arguments matching orderColumns.
func orderRecordArgs(rec domain.OrderRecord) []any {
	ts := rec.Timestamps
	return []any{
		rec.OrderReference, rec.DriverName, rec.DriverUUID, string(rec.PaymentMethod), string(rec.Status),
		rec.VehicleModel, rec.VehicleLicensePlate, rec.TerminalName, rec.PickupAddress, rec.RideDistance,
		toUnix(ts.PaymentConfirmed), toUnix(ts.Created), toUnix(ts.Accepted),
		toUnix(ts.Pickup), toUnix(ts.Dropoff), toUnix(ts.Finished),
		rec.Fare.RidePrice, rec.Fare.BookingFee, rec.Fare.TollFee, rec.Fare.Tip, rec.Fare.CashDiscount,
		rec.Fare.Commission, rec.Fare.InAppDiscount, rec.Fare.NetEarnings, rec.Fare.CancellationFee,
	}
}

// Order timestamps are stored as unix seconds, NULL when unknown.
func fromUnix(v sql.NullInt64) time.Time {
	if !v.Valid || v.Int64 == 0 {
		return time.Time{}
	}
	return time.Unix(v.Int64, 0).UTC()
}

func toUnix(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

// placeholders returns "$start, $start+1, ..." for n arguments.
func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ", ")
}
