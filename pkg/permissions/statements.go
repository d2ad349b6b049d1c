package permissions

import "fmt"

var builders = map[Category]func(Scope) Statement{
	CategoryStack:               stackStatement,
	CategoryBootstrap:           bootstrapStatement,
	CategoryRole:                roleStatement,
	CategoryCertificateRequest:  certificateRequestStatement,
	CategoryCertificate:         certificateStatement,
	CategoryBucket:              bucketStatement,
	CategoryProject:             projectStatement,
	CategoryFunction:            functionStatement,
	CategorySchedule:            scheduleStatement,
	CategoryOriginIdentity:      originIdentityStatement,
	CategoryDistribution:        distributionStatement,
	CategoryDistributionCleanup: distributionCleanupStatement,
	CategoryNotifications:       notificationsStatement,
}

func (s Scope) arn(service, region, account, resource string) string {
	return fmt.Sprintf("arn:%s:%s:%s:%s:%s", s.Partition, service, region, account, resource)
}

func stackStatement(s Scope) Statement {
	return Statement{
		Resources: []string{
			s.arn("cloudformation", s.Region, s.Account, "stack/CDKToolkit/*"),
			s.arn("cloudformation", s.Region, s.Account, fmt.Sprintf("stack/%s*/*", s.StackName)),
		},
		Actions: []string{
			"cloudformation:DescribeStacks",
			"cloudformation:GetTemplate",
			"cloudformation:CreateChangeSet",
			"cloudformation:DescribeChangeSet",
			"cloudformation:ExecuteChangeSet",
			"cloudformation:DescribeStackEvents",
			"cloudformation:DeleteChangeSet",
			"cloudformation:DeleteStack",
		},
	}
}

func bootstrapStatement(s Scope) Statement {
	return Statement{
		Resources: []string{
			s.arn("iam", "", s.Account, "role/cdk-*"),
			s.arn("ssm", s.Region, s.Account, "parameter/cdk-bootstrap/*"),
		},
		Actions: []string{
			"sts:AssumeRole",
			"ssm:GetParameter",
			"ssm:GetParameters",
		},
	}
}

func roleStatement(s Scope) Statement {
	return Statement{
		Resources: []string{
			s.arn("iam", "", s.Account, fmt.Sprintf("role/%s*", s.StackName)),
		},
		Actions: []string{
			"iam:CreateRole",
			"iam:GetRole",
			"iam:PassRole",
			"iam:UpdateRole",
			"iam:DeleteRole",
			"iam:TagRole",
			"iam:AttachRolePolicy",
			"iam:DetachRolePolicy",
			"iam:PutRolePolicy",
			"iam:DeleteRolePolicy",
			"iam:GetRolePolicy",
		},
	}
}

func certificateRequestStatement(_ Scope) Statement {
	return Statement{
		Resources: []string{wildcard},
		Actions: []string{
			"acm:RequestCertificate",
			"acm:AddTagsToCertificate",
		},
	}
}

func certificateStatement(s Scope) Statement {
	return Statement{
		Resources: []string{
			s.arn("acm", s.Region, s.Account, "certificate/*"),
		},
		Actions: []string{
			"acm:DeleteCertificate",
			"acm:DescribeCertificate",
			"acm:ListTagsForCertificate",
		},
	}
}

func bucketStatement(s Scope) Statement {
	assets := fmt.Sprintf("cdk-*-assets-%s-%s", s.Account, s.Region)
	return Statement{
		Resources: []string{
			s.arn("s3", "", "", s.StackName+"*"),
			s.arn("s3", "", "", "cdktoolkit-stagingbucket-*"),
			s.arn("s3", "", "", assets),
			s.arn("s3", "", "", assets+"/*"),
			s.BucketArn,
			s.BucketArn + "/*",
		},
		Actions: []string{
			"s3:CreateBucket",
			"s3:DeleteBucket",
			"s3:PutBucketWebsite",
			"s3:GetBucketPolicy",
			"s3:PutBucketPolicy",
			"s3:DeleteBucketPolicy",
			"s3:PutEncryptionConfiguration",
			"s3:PutBucketPublicAccessBlock",
			"s3:PutBucketOwnershipControls",
			"s3:PutBucketTagging",
			"s3:GetBucketLocation",
			"s3:*Object*",
			"s3:ListBucket",
		},
	}
}

func projectStatement(s Scope) Statement {
	return Statement{
		Resources: []string{
			s.arn("codebuild", s.Region, s.Account, "project/"+s.ProjectName),
		},
		Actions: []string{
			"codebuild:BatchGetProjects",
			"codebuild:CreateProject",
			"codebuild:UpdateProject",
			"codebuild:DeleteProject",
			"codebuild:CreateWebhook",
			"codebuild:UpdateWebhook",
			"codebuild:DeleteWebhook",
		},
	}
}

func functionStatement(s Scope) Statement {
	return Statement{
		Resources: []string{
			s.arn("lambda", s.Region, s.Account, fmt.Sprintf("function:%s*", s.StackName)),
		},
		Actions: []string{"lambda:*Function*"},
	}
}

func scheduleStatement(s Scope) Statement {
	return Statement{
		Resources: []string{
			s.arn("events", s.Region, s.Account, fmt.Sprintf("rule/%s*", s.StackName)),
		},
		Actions: []string{
			"events:DescribeRule",
			"events:PutRule",
			"events:DeleteRule",
			"events:EnableRule",
			"events:DisableRule",
			"events:PutTargets",
			"events:RemoveTargets",
		},
	}
}

func originIdentityStatement(_ Scope) Statement {
	return Statement{
		Resources: []string{wildcard},
		Actions:   []string{"cloudfront:*CloudFrontOriginAccessIdentity*"},
	}
}

func distributionStatement(s Scope) Statement {
	return Statement{
		Resources: []string{
			s.arn("cloudfront", "", s.Account, "distribution/*"),
		},
		Actions: []string{
			"cloudfront:*Distribution*",
			"cloudfront:*agResource",
			"cloudfront:CreateInvalidation",
			"cloudfront:GetInvalidation",
		},
	}
}

// distributionCleanupStatement only reads, disables and deletes.
func distributionCleanupStatement(s Scope) Statement {
	return Statement{
		Resources: []string{
			s.arn("cloudfront", "", s.Account, "distribution/*"),
			s.arn("cloudfront", "", s.Account, "origin-access-identity/*"),
		},
		Actions: []string{
			"cloudfront:GetDistribution",
			"cloudfront:GetDistributionConfig",
			"cloudfront:UpdateDistribution",
			"cloudfront:DeleteDistribution",
			"cloudfront:GetCloudFrontOriginAccessIdentity",
			"cloudfront:GetCloudFrontOriginAccessIdentityConfig",
			"cloudfront:DeleteCloudFrontOriginAccessIdentity",
		},
	}
}

func notificationsStatement(s Scope) Statement {
	return Statement{
		Resources: []string{
			s.arn("sns", s.Region, s.Account, s.StackName+"*"),
		},
		Actions: []string{
			"sns:CreateTopic",
			"sns:DeleteTopic",
			"sns:GetTopicAttributes",
			"sns:SetTopicAttributes",
			"sns:TagResource",
			"sns:Subscribe",
			"sns:Unsubscribe",
			"sns:Publish",
		},
	}
}
