// Custodia - AI Data Access Transparency and Audit
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodia

package archive

import (
	"context"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureArchiver mirrors payloads to Azure Blob Storage. Containers are
// created on first use.
type AzureArchiver struct {
	client *azblob.Client

	mu      sync.Mutex
	created map[string]bool
}

// NewAzureArchiver creates an archiver from an Azure Storage connection string.
func NewAzureArchiver(connectionString string) (*AzureArchiver, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create azure blob client: %w", err)
	}
	return &AzureArchiver{
		client:  client,
		created: make(map[string]bool),
	}, nil
}

// Store uploads payload as a block blob under container/name.
func (a *AzureArchiver) Store(ctx context.Context, container, name string, payload []byte) error {
	if err := a.ensureContainer(ctx, container); err != nil {
		return err
	}

	if _, err := a.client.UploadBuffer(ctx, container, name, payload, nil); err != nil {
		return fmt.Errorf("upload blob %s/%s: %w", container, name, err)
	}
	return nil
}

// ensureContainer creates the container if it does not exist yet. Creation
// results are cached so the common path is a single map lookup.
func (a *AzureArchiver) ensureContainer(ctx context.Context, container string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.created[container] {
		return nil
	}

	_, err := a.client.CreateContainer(ctx, container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("create container %s: %w", container, err)
	}

	a.created[container] = true
	return nil
}
