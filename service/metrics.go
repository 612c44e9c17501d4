package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "esl_steps_total",
		Help: "Simulation steps advanced",
	})

	agentsRegistered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "esl_agents",
		Help: "Registered agents",
	})

	messagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "esl_messages_sent_total",
		Help: "Messages queued for delivery",
	})

	messagesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "esl_messages_delivered_total",
		Help: "Messages handed to agent handlers",
	})

	clearingsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "esl_clearings_published_total",
		Help: "Clearing records written to the outbox",
	})
)
