package domain

import (
	amqp "github.com/rabbitmq/amqp091-go"

	control "github.com/cuongbtq/mission-control/internal/control/domain"
)

// Message is a decoded mission event together with the delivery it arrived on.
type Message struct {
	Event    control.MissionEvent
	Delivery amqp.Delivery
}
