// Package sagemaker implements the provider adapter for models hosted
// on AWS SageMaker real-time inference endpoints. Requests are signed
// with SigV4 and posted to the endpoint's invocations URL; the payload
// follows the text-generation-inference convention used by SageMaker
// LLM containers. Endpoints never report token usage, so counts are
// always synthesized from text length.
package sagemaker
