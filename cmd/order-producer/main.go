package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/segmentio/kafka-go"

	orderreaderv1 "github.com/jvsteiner/orderlib/internal/domain/order-reader/v1"
	orderbookv1 "github.com/jvsteiner/orderlib/internal/domain/orderbook/v1"
)

// generateRandomID creates a random alphanumeric ID
func generateRandomID(rnd *rand.Rand, length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	var result strings.Builder
	for i := 0; i < length; i++ {
		result.WriteByte(charset[rnd.Intn(len(charset))])
	}
	return result.String()
}

func randomOrderType(rnd *rand.Rand) orderbookv1.OrderType {
	// 60% limit, 20% market, 10% ioc, 5% fok, 5% aon
	switch n := rnd.Intn(100); {
	case n < 60:
		return orderbookv1.OrderTypeLimit
	case n < 80:
		return orderbookv1.OrderTypeMarket
	case n < 90:
		return orderbookv1.OrderTypeIOC
	case n < 95:
		return orderbookv1.OrderTypeFOK
	default:
		return orderbookv1.OrderTypeAON
	}
}

// generateOrders creates a specified number of realistic order requests
func generateOrders(rnd *rand.Rand, count int, basePrice, priceSpread int64) []orderreaderv1.OrderRequest {
	orders := make([]orderreaderv1.OrderRequest, count)

	for i := 0; i < count; i++ {
		orderType := randomOrderType(rnd)

		// Order side: 50/50 buy/sell
		side := orderbookv1.SideBuy
		if rnd.Intn(2) == 0 {
			side = orderbookv1.SideSell
		}

		// Order size between 1 and 100 units
		size := 1 + rnd.Int63n(100)

		// Price calculation. Market orders carry a price too: an unfilled
		// remainder rests at it.
		var price int64
		if orderType == orderbookv1.OrderTypeMarket {
			price = basePrice - priceSpread/2 + rnd.Int63n(priceSpread+1)
		} else {
			if side == orderbookv1.SideBuy { // Buy order - typically below market
				price = basePrice - rnd.Int63n(priceSpread*8/10+1)
			} else { // Sell order - typically above market
				price = basePrice + rnd.Int63n(priceSpread*8/10+1)
			}
		}

		// Ensure price is positive
		if price <= 0 {
			price = basePrice
		}

		orders[i] = orderreaderv1.OrderRequest{
			OrderID: ulid.Make().String(),
			UserID:  generateRandomID(rnd, rnd.Intn(4)+6), // 6-9 characters
			Action:  orderreaderv1.ActionPlace,
			Type:    orderType,
			Side:    side,
			Size:    size,
			Price:   price,
		}
	}

	return orders
}

func main() {
	var (
		brokers     = flag.String("brokers", "localhost:9092", "Kafka broker addresses (comma-separated)")
		topic       = flag.String("topic", "orders", "Kafka topic name")
		file        = flag.String("file", "", "JSON file with orders (optional, generates orders if not provided)")
		delay       = flag.Duration("delay", 100*time.Millisecond, "Delay between sending orders")
		count       = flag.Int("count", 1000, "Number of orders to generate")
		basePrice   = flag.Int64("base-price", 50000, "Base price for orders")
		priceSpread = flag.Int64("price-spread", 200, "Price spread range")
	)
	flag.Parse()

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	// Create Kafka writer
	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(*brokers, ",")...),
		Topic:        *topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	defer writer.Close()

	ctx := context.Background()

	// Load orders
	var orders []orderreaderv1.OrderRequest
	if *file != "" {
		// Load from file
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Fatalf("Failed to read file %s: %v", *file, err)
		}
		if err := json.Unmarshal(data, &orders); err != nil {
			log.Fatalf("Failed to parse JSON from file: %v", err)
		}
		log.Printf("Loaded %d orders from file: %s", len(orders), *file)
	} else {
		// Generate orders
		log.Printf("Generating %d orders...", *count)
		orders = generateOrders(rnd, *count, *basePrice, *priceSpread)
		log.Printf("Generated %d orders", len(orders))
	}

	log.Printf("Sending orders to Kafka broker: %s, topic: %s", *brokers, *topic)
	log.Printf("Delay between orders: %v", *delay)

	// Send orders
	for i, order := range orders {
		// Convert order to JSON
		orderJSON, err := json.Marshal(order)
		if err != nil {
			log.Printf("Failed to marshal order %d: %v", i+1, err)
			continue
		}

		// Create Kafka message
		msg := kafka.Message{
			Key:   []byte(order.OrderID),
			Value: orderJSON,
			Time:  time.Now(),
		}

		// Send message
		if err := writer.WriteMessages(ctx, msg); err != nil {
			log.Printf("Failed to send order %d (%s): %v", i+1, order.OrderID, err)
			continue
		}

		// Log progress every 100 orders or for the last order
		if (i+1)%100 == 0 || i == len(orders)-1 {
			log.Printf("Sent order %d/%d: %s | %s | %s %s | Size: %d @ %d",
				i+1, len(orders), order.OrderID, order.UserID,
				order.Type, order.Side, order.Size, order.Price)
		}

		// Wait before sending next order (except for the last one)
		if i < len(orders)-1 {
			time.Sleep(*delay)
		}
	}

	log.Printf("Successfully sent all %d orders!", len(orders))

	// Print summary
	typeCounts := make(map[orderbookv1.OrderType]int)
	buyOrders := 0
	sellOrders := 0

	for _, order := range orders {
		typeCounts[order.Type]++
		if order.Side == orderbookv1.SideBuy {
			buyOrders++
		} else {
			sellOrders++
		}
	}

	log.Printf("--- Summary ---")
	log.Printf("Total Orders: %d", len(orders))
	for _, orderType := range []orderbookv1.OrderType{
		orderbookv1.OrderTypeLimit,
		orderbookv1.OrderTypeMarket,
		orderbookv1.OrderTypeIOC,
		orderbookv1.OrderTypeFOK,
		orderbookv1.OrderTypeAON,
	} {
		if typeCounts[orderType] > 0 {
			log.Printf("%s Orders: %d", strings.ToUpper(string(orderType)), typeCounts[orderType])
		}
	}
	log.Printf("Buy Orders: %d", buyOrders)
	log.Printf("Sell Orders: %d", sellOrders)
}
