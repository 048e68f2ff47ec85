package main

import (
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/aprendu/aprendu-backend/infra/cloudrun"
	"github.com/aprendu/aprendu-backend/infra/docker"
	"github.com/aprendu/aprendu-backend/infra/firestore"
	"github.com/aprendu/aprendu-backend/infra/identity"
	"github.com/aprendu/aprendu-backend/infra/kms"
	"github.com/aprendu/aprendu-backend/infra/provider"
	"github.com/aprendu/aprendu-backend/infra/vertex"
)

func main() {
	pulumi.Run(func(ctx *pulumi.Context) error {
		// set default provider with the correct project
		prov, err := provider.SetupDefaultProvider(ctx)
		if err != nil {
			return err
		}

		// enable identity service to allow using firebase
		ident, err := identity.SetupIdentity(ctx, prov)
		if err != nil {
			return err
		}

		// firestore database plus the chat history TTL policy
		db, err := firestore.SetupFirestore(ctx, prov)
		if err != nil {
			return err
		}

		// saved dashboards are encrypted with this key
		kmsSvc, err := kms.SetupKMS(ctx, prov)
		if err != nil {
			return err
		}
		keyName, err := kms.CreateKey(ctx, prov, "aprendu", "saved-dashboards")
		if err != nil {
			return err
		}

		vertexSvc, err := vertex.SetupVertex(ctx, prov)
		if err != nil {
			return err
		}

		// create docker repo
		repo, err := docker.CreateCloudrunRepo(ctx, prov)
		if err != nil {
			return err
		}

		url, err := cloudrun.SetupCloudRun(ctx, prov, keyName, ident, db, kmsSvc, vertexSvc, repo)
		if err != nil {
			return err
		}

		ctx.Export("apiUrl", url)
		ctx.Export("kmsKeyName", keyName)
		return nil
	})
}
