package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/farmstand-app/orderflow/internal/aws"
	"github.com/farmstand-app/orderflow/internal/handlers"
	"github.com/farmstand-app/orderflow/internal/inventory"
	"github.com/farmstand-app/orderflow/internal/monitoring"
	"github.com/farmstand-app/orderflow/internal/notify"
	"github.com/farmstand-app/orderflow/internal/orders"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	handlers.RegisterOrdersRoutes(r, cfg)
	return r
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	runLocal := os.Getenv("RUN_LOCAL") == "true"
	if runLocal {
		// local dev convenience; missing .env is fine
		_ = godotenv.Load()
	}

	clients, err := aws.NewClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	namespace := os.Getenv("METRICS_NAMESPACE")
	if namespace == "" {
		namespace = "Farmstand/Orderflow"
	}
	monitor := monitoring.NewMonitor(log, clients.CloudWatch, namespace)

	stock := inventory.NewStore(clients.DynamoDB, os.Getenv("PRODUCTS_TABLE"), log)
	store := orders.NewStore(clients.DynamoDB, os.Getenv("ORDERS_TABLE"), os.Getenv("ORDER_ITEMS_TABLE"))
	publisher := notify.NewPublisher(clients.SQS, os.Getenv("NOTIFICATIONS_QUEUE_URL"))

	service := orders.NewService(orders.ServiceConfig{
		Store:        store,
		Stock:        stock,
		Monitor:      monitor,
		Notifier:     publisher,
		Log:          log,
		AtomicSubmit: os.Getenv("ATOMIC_SUBMIT") != "false",
	})

	r := setupRouter(handlers.HandlerConfig{
		Service: service,
		Monitor: monitor,
		Log:     log,
	})

	if runLocal {
		addr := ":8080"
		log.Infof("running local server on %s", addr)
		if err := r.Run(addr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	adapter := ginadapter.New(r)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
