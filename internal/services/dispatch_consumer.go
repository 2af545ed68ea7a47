package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// DispatchConsumer drains the drop_dispatch queue and runs the orchestrator
// for each message. Async dispatch is what makes mid-fanout cancellation
// effective: the HTTP request returns immediately while the fanout runs here.
type DispatchConsumer struct {
	rabbitMQ *RabbitMQService
	dispatch *DispatchService
	stopChan chan struct{}
}

func NewDispatchConsumer(rabbitMQ *RabbitMQService, dispatch *DispatchService) *DispatchConsumer {
	return &DispatchConsumer{
		rabbitMQ: rabbitMQ,
		dispatch: dispatch,
		stopChan: make(chan struct{}),
	}
}

type dispatchMessage struct {
	Type   string `json:"type"`
	DropID string `json:"drop_id"`
	Force  bool   `json:"force"`
}

// Start begins consuming dispatch requests
func (c *DispatchConsumer) Start() error {
	msgs, err := c.rabbitMQ.channel.Consume(
		DispatchQueueName, // queue
		"",                // consumer
		true,              // auto-ack
		false,             // exclusive
		false,             // no-local
		false,             // no-wait
		nil,               // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logrus.Infof("RabbitMQ consumer started for %s queue", DispatchQueueName)

	go func() {
		for {
			select {
			case <-c.stopChan:
				logrus.Info("Dispatch consumer stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					logrus.Warn("RabbitMQ channel closed")
					return
				}
				if err := c.handleMessage(msg.Body); err != nil {
					logrus.Errorf("Failed to process dispatch message: %v", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the consumer
func (c *DispatchConsumer) Stop() {
	close(c.stopChan)
}

func (c *DispatchConsumer) handleMessage(body []byte) error {
	var msg dispatchMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	if msg.Type != "dispatch_drop" || msg.DropID == "" {
		return fmt.Errorf("unexpected message: %s", string(body))
	}

	result, err := c.dispatch.Send(context.Background(), msg.DropID, msg.Force)
	if err != nil {
		// State conflicts are expected when an operator raced the queue
		logrus.Warnf("Async dispatch of drop %s rejected: %v", msg.DropID, err)
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"drop_id": msg.DropID,
		"success": result.Success,
		"errors":  len(result.Errors),
	}).Info("Async dispatch completed")
	return nil
}
